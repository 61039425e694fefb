package model

import (
	"fmt"
	"strings"
)

// SourceID identifies the content source that declared a storage. It is the
// UniqueID from the source's manifest.
type SourceID string

// Manifest describes a content source.
type Manifest struct {
	UniqueID    string `json:"UniqueID"`
	Name        string `json:"Name"`
	Author      string `json:"Author"`
	Version     string `json:"Version"`
	Description string `json:"Description,omitempty"`
}

// ID returns the SourceID for the manifest.
func (m Manifest) ID() SourceID {
	return SourceID(m.UniqueID)
}

// String returns "Name Version", matching how sources are named in log lines.
func (m Manifest) String() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + " " + m.Version
}

// Format classifies how a storage's assets are provided.
type Format int

const (
	// FormatLegacy is a storage whose assets come from the older big
	// craftable layout and may be reclassified by a migration step.
	FormatLegacy Format = iota
	// FormatVanilla is one of the base game's own storages.
	FormatVanilla
	// FormatContentDefined is a storage that ships its own image asset.
	FormatContentDefined
)

var formatNames = [...]string{
	FormatLegacy:         "Legacy",
	FormatVanilla:        "Vanilla",
	FormatContentDefined: "ContentDefined",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= len(formatNames) {
		return nil, fmt.Errorf("unknown format %d", int(f))
	}
	return []byte(formatNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (f *Format) UnmarshalText(text []byte) error {
	for i, name := range formatNames {
		if strings.EqualFold(name, string(text)) {
			*f = Format(i)
			return nil
		}
	}
	return fmt.Errorf("unknown format %q", string(text))
}

// StorageDefinition is one declared storage kind. Name is the registry key
// and the tag value stamped on instances; it must not change after commit.
type StorageDefinition struct {
	Name            string     `json:"-" yaml:"name"`
	Owner           SourceID   `json:"-" yaml:"owner"`
	Capacity        int        `json:"Capacity" yaml:"capacity"`
	EnabledFeatures FeatureSet `json:"EnabledFeatures" yaml:"enabledFeatures"`
	FilterItems     []string   `json:"FilterItems" yaml:"filterItems,omitempty"`
	PlayerConfig    bool       `json:"PlayerConfig" yaml:"playerConfig"`
	PlayerColor     bool       `json:"PlayerColor" yaml:"playerColor"`
	Image           string     `json:"Image,omitempty" yaml:"image,omitempty"`
	Frames          int        `json:"Frames,omitempty" yaml:"frames,omitempty"`
	Format          Format     `json:"-" yaml:"format"`
	DisplayName     string     `json:"-" yaml:"displayName,omitempty"`
	Description     string     `json:"-" yaml:"description,omitempty"`

	// Config is the resolved per-installation configuration. It is set
	// during merge and shared with the source's ConfigOverlay.
	Config *StorageConfig `json:"-" yaml:"config,omitempty"`
}

// AllowsPlayerConfig reports whether players may edit this storage's config.
func (d *StorageDefinition) AllowsPlayerConfig() bool { return d.PlayerConfig }

// AllowsPlayerColor reports whether instances may be recolored by players.
func (d *StorageDefinition) AllowsPlayerColor() bool { return d.PlayerColor }

// EffectiveCapacity is the configured capacity if one is resolved, else the
// author default. Zero means unlimited.
func (d *StorageDefinition) EffectiveCapacity() int {
	if d.Config != nil {
		return d.Config.Capacity
	}
	return d.Capacity
}

// EffectiveFeatures is the configured feature set if one is resolved, else
// the author default.
func (d *StorageDefinition) EffectiveFeatures() FeatureSet {
	if d.Config != nil {
		return d.Config.EnabledFeatures
	}
	return d.EnabledFeatures
}

// DefaultConfig builds a config seeded from the author defaults.
func (d *StorageDefinition) DefaultConfig() *StorageConfig {
	return &StorageConfig{
		Capacity:        d.Capacity,
		EnabledFeatures: d.EnabledFeatures.Clone(),
	}
}

// StorageConfig is the persisted, player-editable part of a storage.
type StorageConfig struct {
	Capacity        int        `json:"Capacity" yaml:"capacity"`
	EnabledFeatures FeatureSet `json:"EnabledFeatures" yaml:"enabledFeatures"`
}

// SetFeature toggles a feature in the config.
func (c *StorageConfig) SetFeature(name string, enabled bool) {
	if c.EnabledFeatures == nil {
		c.EnabledFeatures = NewFeatureSet()
	}
	if enabled {
		c.EnabledFeatures.Add(name)
		return
	}
	c.EnabledFeatures.Remove(name)
}

// ConfigOverlay maps storage names to their persisted config for one source.
// Entries with no matching definition are kept but otherwise ignored.
type ConfigOverlay map[string]*StorageConfig

// Tag is a key/value pair attached to an object instance.
type Tag struct {
	Key   string
	Value string
}

func (t Tag) String() string {
	return t.Key + "=" + t.Value
}

// ParseTag parses "key=value". The key must be non-empty.
func ParseTag(s string) (Tag, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return Tag{}, fmt.Errorf("invalid tag %q: want key=value", s)
	}
	return Tag{Key: key, Value: value}, nil
}

// Texture is a loaded image asset. Only its dimensions are inspected.
type Texture struct {
	Path   string
	Width  int
	Height int
}
