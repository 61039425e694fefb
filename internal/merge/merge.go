// Package merge folds the storage definitions proposed by one content source
// into a registry. The first source to declare a name keeps it; later
// proposals for that name are dropped with a warning.
package merge

import (
	"errors"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"go-expanded-storage/internal/model"
	"go-expanded-storage/internal/registry"
)

// vanillaNames are the base game's storages. They always classify as
// FormatVanilla.
var vanillaNames = map[string]struct{}{
	"Chest":             {},
	"Stone Chest":       {},
	"Junimo Chest":      {},
	"Mini-Shipping Bin": {},
	"Mini-Fridge":       {},
	"Auto-Grabber":      {},
}

// IsVanilla reports whether name is a base game storage.
func IsVanilla(name string) bool {
	_, ok := vanillaNames[name]
	return ok
}

// AssetLoader gives access to a source's files.
type AssetLoader interface {
	HasFile(path string) bool
	LoadTexture(path string) (model.Texture, error)
}

// Source identifies the content source being merged. Assets may be nil, in
// which case no image ever resolves.
type Source struct {
	ID     model.SourceID
	Assets AssetLoader
}

// Engine runs merge passes.
type Engine struct {
	logger *slog.Logger
}

// NewEngine returns an engine logging to logger. A nil logger discards.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{logger: logger}
}

// Merge commits the proposed definitions of src into reg.
//
// A proposal whose name is already committed is dropped. If nothing is left
// the pass stops before touching overlay or reg. Otherwise each survivor gets
// its config from overlay, or a new entry seeded from its author defaults
// (listed in Report.WriteBack), is classified, and is committed. Proposed
// definitions are taken over: Name, Owner, Config, Format and Image are set
// on them.
func (e *Engine) Merge(src Source, proposed map[string]*model.StorageDefinition, overlay model.ConfigOverlay, reg *registry.Registry) *Report {
	report := newReport(src.ID, overlay)
	log := e.logger.With("pass", report.PassID.String(), "source", string(src.ID))

	names := make([]string, 0, len(proposed))
	for name := range proposed {
		names = append(names, name)
	}
	sort.Strings(names)

	accepted := make([]*model.StorageDefinition, 0, len(names))
	for _, name := range names {
		def := proposed[name]
		if def == nil || strings.TrimSpace(name) == "" {
			log.Warn("Skipping unnamed or empty storage", "name", name)
			continue
		}
		if existing, ok := reg.Get(name); ok {
			e.dropDuplicate(log, report, &registry.DuplicateNameError{Name: name, Owner: src.ID, ExistingOwner: existing.Owner})
			continue
		}
		def.Name = name
		def.Owner = src.ID
		accepted = append(accepted, def)
	}

	if len(accepted) == 0 {
		e.nothingToLoad(log, report)
		return report
	}

	if report.Overlay == nil {
		report.Overlay = make(model.ConfigOverlay, len(accepted))
	}

	for _, def := range accepted {
		cfg, ok := report.Overlay[def.Name]
		seeded := !ok || cfg == nil
		if seeded {
			cfg = def.DefaultConfig()
			report.Overlay[def.Name] = cfg
		}
		if cfg.EnabledFeatures == nil {
			cfg.EnabledFeatures = model.NewFeatureSet()
		}
		def.Config = cfg
		def.Format = e.classify(log, report, src.Assets, def)

		if err := reg.Commit(def); err != nil {
			if seeded {
				delete(report.Overlay, def.Name)
			}
			def.Config = nil
			var dup *registry.DuplicateNameError
			if errors.As(err, &dup) {
				e.dropDuplicate(log, report, dup)
				continue
			}
			log.Error("Failed to commit storage", "name", def.Name, "error", err)
			continue
		}

		if seeded {
			report.WriteBack = append(report.WriteBack, def.Name)
		}
		report.Accepted = append(report.Accepted, def.Name)
		log.Debug("Committed storage", "name", def.Name, "format", def.Format.String(), "capacity", cfg.Capacity, "seeded", seeded)
	}

	if len(report.Accepted) == 0 {
		e.nothingToLoad(log, report)
		return report
	}

	log.Info("Merged storages", "accepted", len(report.Accepted), "duplicates", len(report.Duplicates), "seeded", len(report.WriteBack))
	return report
}

func (e *Engine) dropDuplicate(log *slog.Logger, report *Report, dup *registry.DuplicateNameError) {
	log.Warn("Duplicate storage", "name", dup.Name, "existingOwner", string(dup.ExistingOwner))
	report.Duplicates = append(report.Duplicates, dup.Name)
	report.Warn(Warning{Kind: WarnDuplicateName, Name: dup.Name, Err: dup})
}

func (e *Engine) nothingToLoad(log *slog.Logger, report *Report) {
	log.Warn("Nothing to load")
	report.NothingToLoad = true
	report.Warn(Warning{Kind: WarnNothingToLoad})
}

// classify resolves def.Image and picks the asset format. A declared image
// that cannot be found is reported as a missing asset.
func (e *Engine) classify(log *slog.Logger, report *Report, assets AssetLoader, def *model.StorageDefinition) model.Format {
	hasImage := false
	if strings.TrimSpace(def.Image) != "" {
		if resolved, ok := resolveImage(assets, def.Image); ok {
			def.Image = resolved
			hasImage = true
		} else {
			log.Warn("Storage image not found", "name", def.Name, "image", def.Image)
			report.Warn(Warning{Kind: WarnMissingAsset, Name: def.Name, Path: def.Image})
		}
	}

	switch {
	case IsVanilla(def.Name):
		return model.FormatVanilla
	case hasImage:
		return model.FormatContentDefined
	default:
		return model.FormatLegacy
	}
}

// resolveImage looks for image as given, then under assets/.
func resolveImage(assets AssetLoader, image string) (string, bool) {
	if assets == nil {
		return "", false
	}
	if assets.HasFile(image) {
		return image, true
	}
	fallback := path.Join("assets", image)
	if assets.HasFile(fallback) {
		return fallback, true
	}
	return "", false
}
