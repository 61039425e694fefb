// Package capability turns committed storage definitions into tag store
// entries, which is how an instance later discovers its behaviors.
package capability

import (
	"io"
	"log/slog"

	"go-expanded-storage/internal/model"
	"go-expanded-storage/internal/tagstore"
)

// DefaultPrefix is the namespace used for the storage tag key.
const DefaultPrefix = "furyx639.ExpandedStorage"

// Feature names understood by the capability layer.
const (
	FeatureExpandedMenu   = "ExpandedMenu"
	FeatureFilterItems    = "FilterItems"
	FeatureCapacity       = "Capacity"
	FeatureColorPicker    = "ColorPicker"
	FeatureAccessCarried  = "AccessCarried"
	FeatureCanCarry       = "CanCarry"
	FeatureCraftFromChest = "CraftFromChest"
	FeatureStashToChest   = "StashToChest"
	FeatureVacuumItems    = "VacuumItems"
)

// Option describes a player-configurable feature.
type Option struct {
	Feature string
	Name    string
	Tooltip string
}

// CapacityOption is the integer capacity setting.
var CapacityOption = Option{Feature: FeatureCapacity, Name: "Capacity", Tooltip: "The carrying capacity for this chest."}

// Toggles are the boolean features offered on a storage's config page.
var Toggles = []Option{
	{Feature: FeatureAccessCarried, Name: "Access Carried", Tooltip: "Open this chest inventory while it's being carried."},
	{Feature: FeatureCanCarry, Name: "Carry Chest", Tooltip: "Carry this chest even while it's holding items."},
	{Feature: FeatureCraftFromChest, Name: "Craft from Chest", Tooltip: "Allows chest to be crafted from remotely."},
	{Feature: FeatureStashToChest, Name: "Stash to Chest", Tooltip: "Allows chest to be stashed into remotely."},
	{Feature: FeatureVacuumItems, Name: "Vacuum Items", Tooltip: "Allows chest to pick up dropped items while in player inventory."},
}

// Enabler writes feature parameters under a fixed tag key. The tag value is
// always the storage name.
type Enabler struct {
	key    string
	logger *slog.Logger
}

// NewEnabler returns an enabler whose tag key is prefix + "/Storage".
func NewEnabler(prefix string, logger *slog.Logger) *Enabler {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Enabler{key: prefix + "/Storage", logger: logger}
}

// TagKey is the key stamped on every storage instance.
func (e *Enabler) TagKey() string {
	return e.key
}

// Tag returns the tag identifying instances of the named storage.
func (e *Enabler) Tag(name string) model.Tag {
	return model.Tag{Key: e.key, Value: name}
}

// Apply registers every parameter def needs. cfg is the resolved config; if
// nil, def.Config or the author defaults are used.
func (e *Enabler) Apply(def *model.StorageDefinition, cfg *model.StorageConfig, store *tagstore.Features) {
	if cfg == nil {
		cfg = def.Config
	}
	if cfg == nil {
		cfg = def.DefaultConfig()
	}

	e.enable(store, def.Name, FeatureExpandedMenu, tagstore.Bool(true))

	// Filtered storages are never expanded.
	filtered := len(def.FilterItems) > 0
	if filtered {
		e.enable(store, def.Name, FeatureFilterItems, tagstore.List(def.FilterItems))
	} else if cfg.Capacity != 0 {
		e.enable(store, def.Name, FeatureCapacity, tagstore.Int(cfg.Capacity))
	}

	if !def.AllowsPlayerColor() {
		e.enable(store, def.Name, FeatureColorPicker, tagstore.Bool(false))
	}

	for _, feature := range cfg.EnabledFeatures.Sorted() {
		if filtered && feature == FeatureCapacity {
			continue
		}
		e.enable(store, def.Name, feature, paramFor(def, cfg, feature))
	}
}

// Refresh re-applies def after its config changed. Toggles switched off in
// the config are written as false so earlier true entries are replaced.
func (e *Enabler) Refresh(def *model.StorageDefinition, store *tagstore.Features) {
	e.Apply(def, nil, store)
	features := def.EffectiveFeatures()
	for _, opt := range Toggles {
		if !features.Has(opt.Feature) {
			e.SetToggle(def.Name, opt.Feature, false, store)
		}
	}
	if len(def.FilterItems) == 0 {
		e.SetCapacity(def.Name, def.EffectiveCapacity(), store)
	}
}

// SetToggle sets a boolean feature for the named storage.
func (e *Enabler) SetToggle(name, feature string, enabled bool, store *tagstore.Features) {
	e.enable(store, name, feature, tagstore.Bool(enabled))
}

// SetCapacity sets the capacity parameter for the named storage.
func (e *Enabler) SetCapacity(name string, capacity int, store *tagstore.Features) {
	e.enable(store, name, FeatureCapacity, tagstore.Int(capacity))
}

func (e *Enabler) enable(store *tagstore.Features, name, feature string, param tagstore.Param) {
	store.Enable(feature, e.key, name, param)
	e.logger.Debug("Enabled feature", "storage", name, "feature", feature, "param", param.String())
}

func paramFor(def *model.StorageDefinition, cfg *model.StorageConfig, feature string) tagstore.Param {
	switch feature {
	case FeatureCapacity:
		return tagstore.Int(cfg.Capacity)
	case FeatureFilterItems:
		return tagstore.List(def.FilterItems)
	default:
		return tagstore.Bool(true)
	}
}
