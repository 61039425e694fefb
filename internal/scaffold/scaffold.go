// Package scaffold generates the boilerplate of a new content pack.
package scaffold

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/tidwall/jsonc"

	"go-expanded-storage/internal/contentpack"
	"go-expanded-storage/internal/model"
	"go-expanded-storage/pkg/fsutils"
)

var ErrStorageExists = errors.New("scaffold: storage already declared")

// Config holds the layout of a generated pack.
type Config struct {
	BaseDir      string                 // directory new pack folders are created in
	SubDirs      []string               // created inside every pack
	DefaultFiles map[string]FileContent // file name -> template and subdir
}

// FileContent is a text/template rendered with PackData.
type FileContent struct {
	Content string
	SubDir  string
}

// Options describes the pack to generate.
type Options struct {
	Name     string
	Author   string
	Version  string
	UniqueID string   // generated when empty
	Storages []string // storage names to declare; defaults to one named after the pack
}

// PackData is passed to the file templates.
type PackData struct {
	Manifest model.Manifest
	Storages []string
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
var multiHyphen = regexp.MustCompile(`-+`)

// generateSlug creates a directory-friendly slug from a name.
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = multiHyphen.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "pack"
	}
	return slug
}

var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9]+`)

// uniqueID builds "Author.PackName.xxxxxxxx" with a random suffix.
func uniqueID(author, name string) string {
	author = nonIdentifier.ReplaceAllString(author, "")
	if author == "" {
		author = "Unknown"
	}
	name = nonIdentifier.ReplaceAllString(name, "")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return author + "." + name + "." + suffix
}

const manifestTemplate = `{
  "Name": {{ json .Manifest.Name }},
  "Author": {{ json .Manifest.Author }},
  "Version": {{ json .Manifest.Version }},
  "Description": {{ json .Manifest.Description }},
  "UniqueID": {{ json .Manifest.UniqueID }},
  "ContentPackFor": {
    "UniqueID": "furyx639.ExpandedStorage"
  }
}
`

const definitionsTemplate = `{
  // Each key is a storage name. Unset fields take their defaults.
{{- range $i, $name := .Storages }}{{ if $i }},{{ end }}
  {{ json $name }}: {
    "Capacity": 36,
    "EnabledFeatures": ["CanCarry"],
    "PlayerConfig": true,
    "PlayerColor": true,
    "Image": {{ json (printf "%s.png" $name) }}
  }
{{- end }}
}
`

const translationTemplate = `{
{{- range $i, $name := .Storages }}{{ if $i }},{{ end }}
  {{ json (printf "big-craftable.%s.name" $name) }}: {{ json $name }},
  {{ json (printf "big-craftable.%s.description" $name) }}: ""
{{- end }}
}
`

// DefaultGeneratorConfig provides the standard pack layout.
func DefaultGeneratorConfig(baseDir string) Config {
	return Config{
		BaseDir: baseDir,
		SubDirs: []string{"assets", "i18n"},
		DefaultFiles: map[string]FileContent{
			contentpack.ManifestFile:    {Content: manifestTemplate},
			contentpack.DefinitionsFile: {Content: definitionsTemplate},
			filepath.Base(contentpack.TranslationFile): {
				Content: translationTemplate,
				SubDir:  filepath.Dir(contentpack.TranslationFile),
			},
		},
	}
}

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		data, err := json.Marshal(v)
		return string(data), err
	},
}

// GenerateContentPack creates the directory structure and default files for
// a new pack and returns its directory and manifest.
func GenerateContentPack(cfg Config, opts Options, logger *slog.Logger) (string, model.Manifest, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return "", model.Manifest{}, errors.New("pack name cannot be empty")
	}
	manifest := model.Manifest{
		UniqueID:    opts.UniqueID,
		Name:        opts.Name,
		Author:      opts.Author,
		Version:     opts.Version,
		Description: "Storages for " + opts.Name,
	}
	if manifest.UniqueID == "" {
		manifest.UniqueID = uniqueID(opts.Author, opts.Name)
	}
	if manifest.Version == "" {
		manifest.Version = "1.0.0"
	}
	storages := opts.Storages
	if len(storages) == 0 {
		storages = []string{opts.Name}
	}
	data := PackData{Manifest: manifest, Storages: storages}

	packDir := filepath.Join(cfg.BaseDir, generateSlug(opts.Name))
	if fsutils.DirExists(packDir) {
		return "", model.Manifest{}, fmt.Errorf("pack directory %s already exists", packDir)
	}
	if err := fsutils.CreateDir(packDir); err != nil {
		return "", model.Manifest{}, fmt.Errorf("failed to create pack directory %s: %w", packDir, err)
	}
	for _, subDir := range cfg.SubDirs {
		if err := fsutils.CreateDir(filepath.Join(packDir, subDir)); err != nil {
			return "", model.Manifest{}, fmt.Errorf("failed to create subdirectory %s: %w", subDir, err)
		}
	}

	for filename, file := range cfg.DefaultFiles {
		tmpl, err := template.New(filename).Funcs(funcs).Parse(file.Content)
		if err != nil {
			return "", model.Manifest{}, fmt.Errorf("failed to parse template for %s: %w", filename, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", model.Manifest{}, fmt.Errorf("failed to render %s: %w", filename, err)
		}
		path := filepath.Join(packDir, file.SubDir, filename)
		if err := fsutils.WriteToFile(path, buf.Bytes()); err != nil {
			return "", model.Manifest{}, fmt.Errorf("failed to create default file %s: %w", path, err)
		}
		if logger != nil {
			logger.Debug("Created file", "path", path)
		}
	}
	return packDir, manifest, nil
}

// AddStorage declares another storage in an existing pack. Comments in the
// definitions file are not preserved.
func AddStorage(packDir, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("storage name cannot be empty")
	}
	path := filepath.Join(packDir, contentpack.DefinitionsFile)
	table := map[string]json.RawMessage{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !fsutils.FileExists(filepath.Join(packDir, contentpack.ManifestFile)) {
			return fmt.Errorf("%s is not a content pack: %w", packDir, contentpack.ErrNoManifest)
		}
	case err != nil:
		return err
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &table); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if _, ok := table[name]; ok {
		return fmt.Errorf("%w: %s", ErrStorageExists, name)
	}

	entry, err := json.Marshal(map[string]any{
		"Capacity":        36,
		"EnabledFeatures": []string{},
		"Image":           name + ".png",
	})
	if err != nil {
		return err
	}
	table[name] = entry

	out, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	return fsutils.WriteToFile(path, append(out, '\n'))
}
