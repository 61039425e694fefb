package merge

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"go-expanded-storage/internal/model"
)

var (
	// ErrNothingToLoad means a source contributed no usable definitions.
	ErrNothingToLoad = errors.New("merge: nothing to load")

	// ErrMissingAsset means a declared image could not be resolved.
	ErrMissingAsset = errors.New("merge: missing asset")
)

// WarningKind classifies a recoverable problem found during a merge pass.
type WarningKind int

const (
	WarnDuplicateName WarningKind = iota + 1
	WarnNothingToLoad
	WarnMissingAsset
)

func (k WarningKind) String() string {
	switch k {
	case WarnDuplicateName:
		return "DuplicateName"
	case WarnNothingToLoad:
		return "NothingToLoad"
	case WarnMissingAsset:
		return "MissingAsset"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is one recoverable problem. It satisfies error and matches the
// package sentinels (and registry.ErrDuplicateName) with errors.Is.
type Warning struct {
	Kind   WarningKind
	Source model.SourceID
	Name   string
	Path   string
	Err    error
}

func (w Warning) Error() string {
	switch w.Kind {
	case WarnDuplicateName:
		return fmt.Sprintf("duplicate storage %s in %s", w.Name, w.Source)
	case WarnNothingToLoad:
		if w.Err != nil {
			return fmt.Sprintf("nothing to load from %s: %v", w.Source, w.Err)
		}
		return fmt.Sprintf("nothing to load from %s", w.Source)
	case WarnMissingAsset:
		if w.Err != nil {
			return fmt.Sprintf("missing asset %q for storage %s in %s: %v", w.Path, w.Name, w.Source, w.Err)
		}
		return fmt.Sprintf("missing asset %q for storage %s in %s", w.Path, w.Name, w.Source)
	default:
		return fmt.Sprintf("%s for %s in %s", w.Kind, w.Name, w.Source)
	}
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (w Warning) Unwrap() []error {
	var errs []error
	switch w.Kind {
	case WarnNothingToLoad:
		errs = append(errs, ErrNothingToLoad)
	case WarnMissingAsset:
		errs = append(errs, ErrMissingAsset)
	}
	if w.Err != nil {
		errs = append(errs, w.Err)
	}
	return errs
}

// Report summarises one merge pass for one source. It is diagnostic only.
type Report struct {
	PassID        uuid.UUID
	Source        model.SourceID
	Accepted      []string
	Duplicates    []string
	WriteBack     []string
	NothingToLoad bool
	Warnings      []Warning

	// Overlay is the source's config overlay after the pass, including any
	// entries seeded from author defaults.
	Overlay model.ConfigOverlay
}

func newReport(source model.SourceID, overlay model.ConfigOverlay) *Report {
	return &Report{
		PassID:  uuid.New(),
		Source:  source,
		Overlay: overlay,
	}
}

// Skipped returns the report for a source that could not be read at all.
func Skipped(source model.SourceID, cause error) *Report {
	r := newReport(source, nil)
	r.NothingToLoad = true
	r.Warn(Warning{Kind: WarnNothingToLoad, Source: source, Err: cause})
	return r
}

// Warn records a warning.
func (r *Report) Warn(w Warning) {
	if w.Source == "" {
		w.Source = r.Source
	}
	r.Warnings = append(r.Warnings, w)
}

// Loaded reports whether the source committed at least one definition.
func (r *Report) Loaded() bool {
	return len(r.Accepted) > 0
}

// NeedsWriteBack reports whether the overlay gained seeded entries.
func (r *Report) NeedsWriteBack() bool {
	return len(r.WriteBack) > 0
}

// WarningsOf returns the warnings of the given kind.
func (r *Report) WarningsOf(kind WarningKind) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

// Err joins every warning into one error, or nil when there are none.
func (r *Report) Err() error {
	errs := make([]error, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		errs = append(errs, w)
	}
	return errors.Join(errs...)
}
