package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"go-expanded-storage/internal/config"
	"go-expanded-storage/internal/loader"
	"go-expanded-storage/internal/merge"
	"go-expanded-storage/internal/model"
	"go-expanded-storage/internal/scaffold"
	"go-expanded-storage/internal/session"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	usage string
	help  string
	run   func(c *cli, args []string) error
}

var commands = map[string]command{
	"list":        {"list", "List loaded storages per content pack", (*cli).list},
	"owned":       {"owned <source-id>", "List the storages a content pack declared", (*cli).owned},
	"show":        {"show <name>", "Print one storage definition as YAML", (*cli).show},
	"resolve":     {"resolve --feature <name> <key=value>...", "Resolve a feature parameter from instance tags", (*cli).resolve},
	"dump":        {"dump", "Print every storage definition and load warning as YAML", (*cli).dump},
	"save":        {"save", "Write config.json for packs whose config was seeded", (*cli).save},
	"new-pack":    {"new-pack --name <name> [--author <author>] [--storage <name>]...", "Create a new content pack", (*cli).newPack},
	"add-storage": {"add-storage --pack <dir> --name <name>", "Declare another storage in a content pack", (*cli).addStorage},
}

var commandOrder = []string{"list", "owned", "show", "resolve", "dump", "save", "new-pack", "add-storage"}

type cli struct {
	flags  *pflag.FlagSet
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *slog.Logger

	feature  string
	name     string
	author   string
	pack     string
	storages []string
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stdout)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}

	c := &cli{stdout: stdout, stderr: stderr}
	c.flags = pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	c.flags.SetOutput(stderr)
	c.flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: storage-cli %s\n\n%s\n\nFlags:\n", cmd.usage, cmd.help)
		c.flags.PrintDefaults()
	}
	config.AddFlags(c.flags)
	switch args[0] {
	case "resolve":
		c.flags.StringVar(&c.feature, "feature", "", "feature to resolve")
	case "new-pack":
		c.flags.StringVar(&c.name, "name", "", "pack name (required)")
		c.flags.StringVar(&c.author, "author", "", "pack author")
		c.flags.StringSliceVar(&c.storages, "storage", nil, "storage names to declare")
	case "add-storage":
		c.flags.StringVar(&c.pack, "pack", "", "pack directory (required)")
		c.flags.StringVar(&c.name, "name", "", "storage name (required)")
	}
	if err := c.flags.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(c.flags)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = cfg.Logger(stderr)
	return cmd.run(c, c.flags.Args())
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: storage-cli <command> [options]")
	fmt.Fprintln(w, "Available commands:")
	for _, name := range commandOrder {
		cmd := commands[name]
		fmt.Fprintf(w, "  %s\n                %s\n", cmd.usage, cmd.help)
	}
}

// load reads every pack under packs_dir.
func (c *cli) load() (*session.Session, []*merge.Report, error) {
	s, err := session.New(c.cfg, c.logger)
	if err != nil {
		return nil, nil, err
	}
	reports, err := s.Reload()
	if err != nil {
		return nil, nil, err
	}
	return s, reports, nil
}

func (c *cli) list(_ []string) error {
	s, reports, err := c.load()
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintf(c.stdout, "No content packs found in %s.\n", c.cfg.PacksDir)
		return nil
	}
	s.View(func(l *loader.Loader) {
		for _, report := range reports {
			fmt.Fprintf(c.stdout, "%s\n", report.Source)
			if report.NothingToLoad {
				fmt.Fprintln(c.stdout, "  (nothing to load)")
			}
			for _, name := range report.Accepted {
				def, ok := l.Registry().Get(name)
				if !ok {
					continue
				}
				fmt.Fprintf(c.stdout, "  - %s [%s] capacity=%s features=%s\n",
					name, def.Format, capacityString(def.EffectiveCapacity()), strings.Join(def.EffectiveFeatures().Sorted(), ","))
			}
			for _, name := range report.Duplicates {
				fmt.Fprintf(c.stdout, "  x %s (duplicate, ignored)\n", name)
			}
		}
	})
	return nil
}

func capacityString(capacity int) string {
	if capacity == 0 {
		return "unlimited"
	}
	return fmt.Sprint(capacity)
}

func (c *cli) owned(args []string) error {
	if len(args) != 1 {
		c.flags.Usage()
		return errors.New("owned takes exactly one source ID")
	}
	s, _, err := c.load()
	if err != nil {
		return err
	}
	s.View(func(l *loader.Loader) {
		for _, name := range l.OwnedNames(model.SourceID(args[0])) {
			fmt.Fprintln(c.stdout, name)
		}
	})
	return nil
}

func (c *cli) show(args []string) error {
	if len(args) != 1 {
		c.flags.Usage()
		return errors.New("show takes exactly one storage name")
	}
	s, _, err := c.load()
	if err != nil {
		return err
	}
	var def *model.StorageDefinition
	s.View(func(l *loader.Loader) { def, _ = l.Registry().Get(args[0]) })
	if def == nil {
		return fmt.Errorf("no storage named %q", args[0])
	}
	return c.writeYAML(def)
}

func (c *cli) resolve(args []string) error {
	if c.feature == "" || len(args) == 0 {
		c.flags.Usage()
		return errors.New("resolve needs --feature and at least one tag")
	}
	tags := make([]model.Tag, 0, len(args))
	for _, arg := range args {
		tag, err := model.ParseTag(arg)
		if err != nil {
			return err
		}
		tags = append(tags, tag)
	}
	s, _, err := c.load()
	if err != nil {
		return err
	}
	s.View(func(l *loader.Loader) {
		if param, ok := l.Features().Resolve(c.feature, tags); ok {
			fmt.Fprintln(c.stdout, param.String())
			return
		}
		fmt.Fprintln(c.stdout, "<none>")
	})
	return nil
}

type dumpWarning struct {
	Source string `yaml:"source"`
	Kind   string `yaml:"kind"`
	Name   string `yaml:"name,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

type dumpDocument struct {
	TagKey   string                     `yaml:"tagKey"`
	Storages []*model.StorageDefinition `yaml:"storages"`
	// Features maps feature name to tag value to parameter.
	Features map[string]map[string]any  `yaml:"features,omitempty"`
	Warnings []dumpWarning              `yaml:"warnings,omitempty"`
}

func (c *cli) dump(_ []string) error {
	s, reports, err := c.load()
	if err != nil {
		return err
	}
	var doc dumpDocument
	s.View(func(l *loader.Loader) {
		doc.TagKey = l.Enabler().TagKey()
		for def := range l.Registry().All() {
			doc.Storages = append(doc.Storages, def)
		}
		doc.Features = make(map[string]map[string]any)
		for _, feature := range l.Features().Names() {
			store := l.Features().Store(feature)
			entries := make(map[string]any, store.Len())
			for _, tag := range store.Tags() {
				param, _ := store.Get(tag.Key, tag.Value)
				entries[tag.Value] = param.Value()
			}
			doc.Features[feature] = entries
		}
	})
	for _, report := range reports {
		for _, w := range report.Warnings {
			dw := dumpWarning{Source: string(report.Source), Kind: w.Kind.String(), Name: w.Name, Path: w.Path}
			if w.Err != nil {
				dw.Error = w.Err.Error()
			}
			doc.Warnings = append(doc.Warnings, dw)
		}
	}
	return c.writeYAML(doc)
}

func (c *cli) writeYAML(v any) error {
	enc := yaml.NewEncoder(c.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

func (c *cli) save(_ []string) error {
	s, _, err := c.load()
	if err != nil {
		return err
	}
	if err := s.Update(func(l *loader.Loader) error { return l.SaveDirty() }); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Saved content pack configs.")
	return nil
}

func (c *cli) newPack(_ []string) error {
	if c.name == "" {
		c.flags.Usage()
		return errors.New("--name is required for new-pack")
	}
	genConfig := scaffold.DefaultGeneratorConfig(c.cfg.PacksDir)
	dir, manifest, err := scaffold.GenerateContentPack(genConfig, scaffold.Options{
		Name:     c.name,
		Author:   c.author,
		Storages: c.storages,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("generating content pack: %w", err)
	}
	fmt.Fprintf(c.stdout, "Created content pack '%s' with ID '%s' in directory '%s'\n", manifest.Name, manifest.UniqueID, dir)
	return nil
}

func (c *cli) addStorage(_ []string) error {
	if c.pack == "" || c.name == "" {
		c.flags.Usage()
		return errors.New("--pack and --name are required for add-storage")
	}
	if err := scaffold.AddStorage(c.pack, c.name); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Added storage '%s' to %s\n", c.name, c.pack)
	return nil
}
