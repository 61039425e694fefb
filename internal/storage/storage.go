package storage

import "go-expanded-storage/internal/model"

// OverlayStore persists the per-installation config overlay of each content
// source. Implementations keep one record per source.
type OverlayStore interface {
	// Read returns the overlay for source. A source with no saved overlay
	// yields an empty overlay and a nil error.
	Read(source model.SourceID) (model.ConfigOverlay, error)

	// Write replaces the saved overlay for source.
	Write(source model.SourceID, overlay model.ConfigOverlay) error
}
