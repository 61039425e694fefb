package loader

import (
	"go-expanded-storage/internal/merge"
	"go-expanded-storage/internal/model"
)

// Source is a content source as the loader sees it. *contentpack.Pack
// implements it.
type Source interface {
	merge.AssetLoader
	ID() model.SourceID
	Manifest() model.Manifest
	ReadDefinitions() (map[string]*model.StorageDefinition, error)
	HasDir(rel string) bool
	Translate(key string) string
}

// MenuRegistrar receives configuration menu registrations. Calls are fire
// and forget; failures stay inside the registrar.
type MenuRegistrar interface {
	Register(manifest model.Manifest, revert func(), save func())
	AddPageLink(manifest model.Manifest, page, label string)
	StartPage(manifest model.Manifest, page string)
	AddIntOption(manifest model.Manifest, name, tooltip string, get func() int, set func(int))
	AddBoolOption(manifest model.Manifest, name, tooltip string, get func() bool, set func(bool))
}

// MigratorFactory finds a legacy-format migrator for a source.
type MigratorFactory interface {
	FromSource(src Source) (Migrator, bool)
}

// Migrator converts a legacy-format source.
type Migrator interface {
	Convert(source model.SourceID) bool
	Items() []MigratedItem
}

// MigratedItem is one storage found by a migrator.
type MigratedItem struct {
	Name string
}

// Matcher decides whether an item fits a storage's filter rules.
type Matcher interface {
	SetRules(rules []string)
	Matches(item any) bool
}
