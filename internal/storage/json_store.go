package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"go-expanded-storage/internal/model"
	"go-expanded-storage/pkg/fsutils"
)

// ConfigFileName is the overlay file kept inside each content pack.
const ConfigFileName = "config.json"

// JSONStore implements OverlayStore using one JSON file per source under
// BasePath. File names are the sanitized source IDs.
type JSONStore struct {
	// BasePath is the directory where overlay files (*.json) are stored.
	BasePath string
}

// NewJSONStore creates a new JSONStore instance.
// It ensures the base storage directory exists.
func NewJSONStore(basePath string) (*JSONStore, error) {
	if err := fsutils.CreateDir(basePath); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", basePath, err)
	}
	return &JSONStore{BasePath: basePath}, nil
}

// PathFor returns the overlay file path for source.
func (js *JSONStore) PathFor(source model.SourceID) string {
	return filepath.Join(js.BasePath, fsutils.SanitizeFilename(string(source))+".json")
}

// Read loads the overlay for source.
func (js *JSONStore) Read(source model.SourceID) (model.ConfigOverlay, error) {
	if source == "" {
		return nil, fmt.Errorf("source ID cannot be empty")
	}
	return readOverlay(js.PathFor(source))
}

// Write saves the overlay for source.
func (js *JSONStore) Write(source model.SourceID, overlay model.ConfigOverlay) error {
	if source == "" {
		return fmt.Errorf("source ID cannot be empty")
	}
	return writeOverlay(js.PathFor(source), overlay)
}

// PackStore implements OverlayStore by keeping config.json inside each
// registered content pack directory.
type PackStore struct {
	dirs map[model.SourceID]string
}

// NewPackStore returns an empty PackStore.
func NewPackStore() *PackStore {
	return &PackStore{dirs: make(map[model.SourceID]string)}
}

// Register records the directory of source.
func (ps *PackStore) Register(source model.SourceID, dir string) {
	ps.dirs[source] = dir
}

// Read loads config.json from the source's directory.
func (ps *PackStore) Read(source model.SourceID) (model.ConfigOverlay, error) {
	dir, ok := ps.dirs[source]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", source, ErrUnknownSource)
	}
	return readOverlay(filepath.Join(dir, ConfigFileName))
}

// Write writes config.json into the source's directory.
func (ps *PackStore) Write(source model.SourceID, overlay model.ConfigOverlay) error {
	dir, ok := ps.dirs[source]
	if !ok {
		return fmt.Errorf("source %s: %w", source, ErrUnknownSource)
	}
	return writeOverlay(filepath.Join(dir, ConfigFileName), overlay)
}

// ErrUnknownSource is returned by PackStore for unregistered sources.
var ErrUnknownSource = errors.New("storage: unknown source")

// readOverlay decodes an overlay file. Comments and trailing commas are
// accepted since players edit these by hand. A missing file is an empty overlay.
func readOverlay(filePath string) (model.ConfigOverlay, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.ConfigOverlay{}, nil
		}
		return nil, fmt.Errorf("failed to read overlay file %s: %w", filePath, err)
	}

	overlay := model.ConfigOverlay{}
	if err := json.Unmarshal(jsonc.ToJSON(data), &overlay); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overlay from %s: %w", filePath, err)
	}
	for name, cfg := range overlay {
		if cfg == nil {
			delete(overlay, name)
		}
	}
	return overlay, nil
}

func writeOverlay(filePath string, overlay model.ConfigOverlay) error {
	if overlay == nil {
		overlay = model.ConfigOverlay{}
	}
	// MarshalIndent for readable files; map keys come out sorted.
	data, err := json.MarshalIndent(overlay, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal overlay for %s: %w", filePath, err)
	}
	if err := fsutils.WriteToFile(filePath, data); err != nil {
		return fmt.Errorf("failed to write overlay file %s: %w", filePath, err)
	}
	return nil
}
