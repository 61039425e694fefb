// Package loader loads content packs into a registry and wires each loaded
// storage into the capability store, the config overlay and the optional
// configuration menu.
package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"go-expanded-storage/internal/capability"
	"go-expanded-storage/internal/contentpack"
	"go-expanded-storage/internal/merge"
	"go-expanded-storage/internal/model"
	"go-expanded-storage/internal/registry"
	"go-expanded-storage/internal/storage"
	"go-expanded-storage/internal/tagstore"
)

// Options configures a Loader. Every collaborator is optional.
type Options struct {
	TagPrefix string
	Logger    *slog.Logger
	Overlays  storage.OverlayStore
	Menu      MenuRegistrar
	Migrators MigratorFactory
	Matcher   Matcher

	// DisableCapabilities skips writing tag store entries.
	DisableCapabilities bool
}

// Loader owns the registry and capability store for one session.
type Loader struct {
	opts     Options
	logger   *slog.Logger
	registry *registry.Registry
	features *tagstore.Features
	engine   *merge.Engine
	enabler  *capability.Enabler
	textures map[string]model.Texture
	overlays map[model.SourceID]model.ConfigOverlay
	dirty    map[model.SourceID]bool
	reports  []*merge.Report
}

// New creates a Loader with an empty registry.
func New(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		opts:     opts,
		logger:   logger,
		registry: registry.New(),
		features: tagstore.NewFeatures(),
		engine:   merge.NewEngine(logger),
		enabler:  capability.NewEnabler(opts.TagPrefix, logger),
		textures: make(map[string]model.Texture),
		overlays: make(map[model.SourceID]model.ConfigOverlay),
		dirty:    make(map[model.SourceID]bool),
	}
}

// Registry returns the session registry.
func (l *Loader) Registry() *registry.Registry { return l.registry }

// Features returns the capability store.
func (l *Loader) Features() *tagstore.Features { return l.features }

// Enabler returns the enabler, which knows the storage tag key.
func (l *Loader) Enabler() *capability.Enabler { return l.enabler }

// Reports returns the reports of every pass since the last reset.
func (l *Loader) Reports() []*merge.Report { return l.reports }

// Texture returns the texture loaded for a storage.
func (l *Loader) Texture(name string) (model.Texture, bool) {
	tex, ok := l.textures[name]
	return tex, ok
}

// Overlay returns the config overlay of a loaded source.
func (l *Loader) Overlay(source model.SourceID) (model.ConfigOverlay, bool) {
	overlay, ok := l.overlays[source]
	return overlay, ok
}

// Dirty reports whether a source's overlay has unsaved changes.
func (l *Loader) Dirty(source model.SourceID) bool {
	return l.dirty[source]
}

// LoadAll loads sources in order. A failing source never stops the rest.
func (l *Loader) LoadAll(sources []Source) []*merge.Report {
	reports := make([]*merge.Report, 0, len(sources))
	for _, src := range sources {
		reports = append(reports, l.LoadPack(src))
	}
	return reports
}

// Reload drops everything loaded so far and loads sources again.
func (l *Loader) Reload(sources []Source) []*merge.Report {
	l.Reset()
	return l.LoadAll(sources)
}

// Reset returns the loader to its empty state.
func (l *Loader) Reset() {
	l.registry.Reset()
	l.features.Reset()
	clear(l.textures)
	clear(l.overlays)
	clear(l.dirty)
	l.reports = nil
	if resetter, ok := l.opts.Menu.(interface{ Reset() }); ok {
		resetter.Reset()
	}
}

// LoadPack merges one source and wires up its storages.
func (l *Loader) LoadPack(src Source) *merge.Report {
	id := src.ID()
	manifest := src.Manifest()
	log := l.logger.With("source", string(id))
	log.Info("Loading content pack", "pack", manifest.String())

	proposed, err := src.ReadDefinitions()
	if err != nil {
		log.Warn("Nothing to load", "pack", manifest.String(), "error", err)
		report := merge.Skipped(id, err)
		l.reports = append(l.reports, report)
		return report
	}

	report := l.engine.Merge(merge.Source{ID: id, Assets: src}, proposed, l.readOverlay(log, id), l.registry)
	l.reports = append(l.reports, report)
	if !report.Loaded() {
		return report
	}

	l.overlays[id] = report.Overlay
	if report.NeedsWriteBack() {
		l.dirty[id] = true
	}

	defs := make([]*model.StorageDefinition, 0, len(report.Accepted))
	for _, name := range report.Accepted {
		if def, ok := l.registry.Get(name); ok {
			defs = append(defs, def)
		}
	}

	for _, def := range defs {
		l.loadTexture(log, report, src, def)
	}
	l.migrate(log, src, defs)

	if !l.opts.DisableCapabilities {
		for _, def := range defs {
			l.enabler.Apply(def, def.Config, l.features)
		}
	}

	l.registerMenu(manifest, defs)

	for _, def := range defs {
		def.DisplayName = src.Translate(fmt.Sprintf("big-craftable.%s.name", def.Name))
		if def.DisplayName == "" {
			def.DisplayName = def.Name
		}
		def.Description = src.Translate(fmt.Sprintf("big-craftable.%s.description", def.Name))
	}

	log.Info("Loaded content pack", "pack", manifest.String(), "storages", len(defs), "warnings", len(report.Warnings))
	return report
}

func (l *Loader) readOverlay(log *slog.Logger, id model.SourceID) model.ConfigOverlay {
	if l.opts.Overlays == nil {
		return model.ConfigOverlay{}
	}
	overlay, err := l.opts.Overlays.Read(id)
	if err != nil {
		log.Warn("Failed to read config overlay, using author defaults", "error", err)
		return model.ConfigOverlay{}
	}
	return overlay
}

func (l *Loader) loadTexture(log *slog.Logger, report *merge.Report, src Source, def *model.StorageDefinition) {
	if def.Image == "" || !src.HasFile(def.Image) {
		return
	}
	tex, err := src.LoadTexture(def.Image)
	if err != nil {
		log.Warn("Failed to load storage texture", "name", def.Name, "image", def.Image, "error", err)
		report.Warn(merge.Warning{Kind: merge.WarnMissingAsset, Name: def.Name, Path: def.Image, Err: err})
		return
	}
	l.textures[def.Name] = tex
}

// migrate fills image metadata for legacy storages from a migrator. Frames
// are 16 pixels wide and color-capable sheets are taller than 32 pixels.
func (l *Loader) migrate(log *slog.Logger, src Source, defs []*model.StorageDefinition) {
	if l.opts.Migrators == nil || !src.HasDir(contentpack.LegacyDir) {
		return
	}
	migrator, ok := l.opts.Migrators.FromSource(src)
	if !ok {
		return
	}
	if !src.HasFile(contentpack.ContentFile) && !migrator.Convert(src.ID()) {
		log.Warn("Legacy migration failed")
		return
	}

	byName := make(map[string]*model.StorageDefinition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	for _, item := range migrator.Items() {
		def, ok := byName[item.Name]
		if !ok || def.Image != "" {
			continue
		}
		if _, loaded := l.textures[item.Name]; loaded {
			continue
		}
		image := path.Join("assets", item.Name+".png")
		if !src.HasFile(image) {
			continue
		}
		tex, err := src.LoadTexture(image)
		if err != nil {
			log.Warn("Failed to load migrated texture", "name", item.Name, "image", image, "error", err)
			continue
		}
		l.textures[item.Name] = tex
		def.Image = image
		def.Format = model.FormatLegacy
		def.Frames = tex.Width / 16
		def.PlayerColor = tex.Height > 32
		log.Debug("Migrated legacy storage", "name", item.Name, "frames", def.Frames, "color", def.PlayerColor)
	}
}

// DefinitionFor finds the storage an instance belongs to from its tags.
func (l *Loader) DefinitionFor(tags []model.Tag) (*model.StorageDefinition, bool) {
	key := l.enabler.TagKey()
	for _, tag := range tags {
		if tag.Key != key {
			continue
		}
		if def, ok := l.registry.Get(tag.Value); ok {
			return def, true
		}
	}
	return nil, false
}

// AcceptsItem reports whether item may be stored in the instance carrying
// tags. Instances that are not storages, and storages without filter rules,
// accept everything.
func (l *Loader) AcceptsItem(tags []model.Tag, item any) bool {
	def, ok := l.DefinitionFor(tags)
	if !ok || l.opts.Matcher == nil || len(def.FilterItems) == 0 {
		return true
	}
	l.opts.Matcher.SetRules(def.FilterItems)
	return l.opts.Matcher.Matches(item)
}

// AllNames returns every loaded storage name.
func (l *Loader) AllNames() []string {
	return l.registry.Names()
}

// OwnedNames returns the storage names a source declared.
func (l *Loader) OwnedNames(source model.SourceID) []string {
	return l.registry.OwnedNames(source)
}

// Save writes a source's overlay through the overlay store.
func (l *Loader) Save(source model.SourceID) error {
	if l.opts.Overlays == nil {
		return errors.New("loader: no overlay store configured")
	}
	overlay, ok := l.overlays[source]
	if !ok {
		return fmt.Errorf("loader: source %s is not loaded", source)
	}
	if err := l.opts.Overlays.Write(source, overlay); err != nil {
		return fmt.Errorf("saving config for %s: %w", source, err)
	}
	delete(l.dirty, source)
	l.logger.Info("Saved config overlay", "source", string(source), "storages", len(overlay))
	return nil
}

// SaveDirty saves every overlay with unsaved changes.
func (l *Loader) SaveDirty() error {
	var errs []error
	for source := range l.dirty {
		if err := l.Save(source); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
