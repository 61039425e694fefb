// Package contentpack reads content packs from disk. A pack is a directory
// holding manifest.json, an expanded-storage.json table of storage
// definitions, optional images, and optional translations. All JSON files
// may contain comments and trailing commas.
package contentpack

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/png" // textures are PNG
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"go-expanded-storage/internal/model"
	"go-expanded-storage/pkg/fsutils"
)

// Well-known files inside a pack.
const (
	ManifestFile    = "manifest.json"
	DefinitionsFile = "expanded-storage.json"
	TranslationFile = "i18n/default.json"
	ContentFile     = "content.json"
	LegacyDir       = "BigCraftables"
)

const defaultFrames = 5

var (
	// ErrNoManifest is returned by Open for directories without a valid manifest.
	ErrNoManifest = errors.New("contentpack: missing or invalid manifest")

	// ErrNoDefinitions is returned by ReadDefinitions when the pack has no
	// expanded-storage.json.
	ErrNoDefinitions = errors.New("contentpack: no storage definitions")
)

// Pack is a content pack on disk.
type Pack struct {
	dir          string
	manifest     model.Manifest
	translations map[string]string
}

// Open reads the manifest of the pack in dir.
func Open(dir string) (*Pack, error) {
	var manifest model.Manifest
	if err := readJSON(filepath.Join(dir, ManifestFile), &manifest); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", dir, ErrNoManifest, err)
	}
	if manifest.UniqueID == "" || manifest.Name == "" {
		return nil, fmt.Errorf("%s: %w: UniqueID and Name are required", dir, ErrNoManifest)
	}
	return &Pack{dir: dir, manifest: manifest}, nil
}

// Discover opens every pack directly under root in sorted directory order.
// Directories that are not packs are logged and skipped, as is any pack
// whose UniqueID was already claimed by an earlier directory.
func Discover(root string, logger *slog.Logger) ([]*Pack, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dirs, err := fsutils.ListDirs(root)
	if err != nil {
		return nil, err
	}

	packs := make([]*Pack, 0, len(dirs))
	seen := make(map[model.SourceID]string, len(dirs))
	for _, name := range dirs {
		pack, err := Open(filepath.Join(root, name))
		if err != nil {
			logger.Warn("Skipping directory without a content pack manifest", "dir", name, "error", err)
			continue
		}
		if first, ok := seen[pack.ID()]; ok {
			logger.Warn("Skipping content pack with a duplicate UniqueID", "dir", name, "source", pack.ID(), "loadedFrom", first)
			continue
		}
		seen[pack.ID()] = name
		packs = append(packs, pack)
	}
	return packs, nil
}

// Dir returns the pack directory.
func (p *Pack) Dir() string { return p.dir }

// ID returns the pack's source ID.
func (p *Pack) ID() model.SourceID { return p.manifest.ID() }

// Manifest returns the pack manifest.
func (p *Pack) Manifest() model.Manifest { return p.manifest }

// HasFile reports whether rel names a regular file inside the pack.
func (p *Pack) HasFile(rel string) bool {
	full, err := fsutils.JoinWithin(p.dir, rel)
	if err != nil {
		return false
	}
	return fsutils.FileExists(full)
}

// HasDir reports whether rel names a directory inside the pack.
func (p *Pack) HasDir(rel string) bool {
	full, err := fsutils.JoinWithin(p.dir, rel)
	if err != nil {
		return false
	}
	return fsutils.DirExists(full)
}

// LoadTexture reads the dimensions of the PNG at rel.
func (p *Pack) LoadTexture(rel string) (model.Texture, error) {
	full, err := fsutils.JoinWithin(p.dir, rel)
	if err != nil {
		return model.Texture{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		return model.Texture{}, fmt.Errorf("failed to open texture %s: %w", rel, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return model.Texture{}, fmt.Errorf("failed to decode texture %s: %w", rel, err)
	}
	return model.Texture{Path: rel, Width: cfg.Width, Height: cfg.Height}, nil
}

// ReadDefinitions parses the pack's expanded-storage.json.
func (p *Pack) ReadDefinitions() (map[string]*model.StorageDefinition, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, DefinitionsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoDefinitions
		}
		return nil, fmt.Errorf("failed to read %s: %w", DefinitionsFile, err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", DefinitionsFile, err)
	}
	return defs, nil
}

// Translate looks up key in i18n/default.json. Missing keys (or a missing
// file) yield "".
func (p *Pack) Translate(key string) string {
	if p.translations == nil {
		table := map[string]string{}
		if err := readJSON(filepath.Join(p.dir, TranslationFile), &table); err != nil {
			table = map[string]string{}
		}
		p.translations = table
	}
	return p.translations[key]
}

// rawDefinition mirrors the authored JSON so unset booleans can take defaults.
type rawDefinition struct {
	Capacity        int      `json:"Capacity"`
	EnabledFeatures []string `json:"EnabledFeatures"`
	FilterItems     []string `json:"FilterItems"`
	PlayerConfig    *bool    `json:"PlayerConfig"`
	PlayerColor     *bool    `json:"PlayerColor"`
	Image           string   `json:"Image"`
	Frames          *int     `json:"Frames"`
}

// ParseDefinitions decodes a JSONC table of storage name to definition.
// PlayerConfig defaults to true, PlayerColor to false and Frames to 5.
func ParseDefinitions(data []byte) (map[string]*model.StorageDefinition, error) {
	var raw map[string]*rawDefinition
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse storage definitions: %w", err)
	}

	defs := make(map[string]*model.StorageDefinition, len(raw))
	for name, r := range raw {
		if r == nil {
			continue
		}
		def := &model.StorageDefinition{
			Name:            name,
			Capacity:        r.Capacity,
			EnabledFeatures: model.NewFeatureSet(r.EnabledFeatures...),
			FilterItems:     r.FilterItems,
			PlayerConfig:    true,
			Image:           r.Image,
			Frames:          defaultFrames,
		}
		if r.PlayerConfig != nil {
			def.PlayerConfig = *r.PlayerConfig
		}
		if r.PlayerColor != nil {
			def.PlayerColor = *r.PlayerColor
		}
		if r.Frames != nil {
			def.Frames = *r.Frames
		}
		defs[name] = def
	}
	return defs, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonc.ToJSON(data), v)
}
