// Package config loads host settings from flags, XS_ environment variables
// and an optional expanded-storage.yaml file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go-expanded-storage/internal/capability"
)

// FileName is the config file looked up in the working directory.
const FileName = "expanded-storage.yaml"

const envPrefix = "XS"

// Config is the host configuration.
type Config struct {
	PacksDir     string       `mapstructure:"packs_dir"`
	OverlayDir   string       `mapstructure:"overlay_dir"`
	TagPrefix    string       `mapstructure:"tag_prefix"`
	LogLevel     string       `mapstructure:"log_level"`
	AdminAddr    string       `mapstructure:"admin_addr"`
	ServerAddr   string       `mapstructure:"server_addr"`
	Watch        bool         `mapstructure:"watch"`
	Integrations Integrations `mapstructure:"integrations"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Integrations toggles the optional collaborators of the loader.
type Integrations struct {
	Capabilities bool `mapstructure:"capabilities"`
	Menu         bool `mapstructure:"menu"`
}

var defaults = map[string]any{
	"packs_dir":                 "packs",
	"overlay_dir":               "",
	"tag_prefix":                capability.DefaultPrefix,
	"log_level":                 "info",
	"admin_addr":                "127.0.0.1:8081",
	"server_addr":               "127.0.0.1:8080",
	"watch":                     false,
	"integrations.capabilities": true,
	"integrations.menu":         true,
}

// flag name -> config key
var flagKeys = map[string]string{
	"packs-dir":   "packs_dir",
	"overlay-dir": "overlay_dir",
	"tag-prefix":  "tag_prefix",
	"log-level":   "log_level",
	"admin-addr":  "admin_addr",
	"server-addr": "server_addr",
	"watch":       "watch",
}

// AddFlags registers the shared flags on fs. Commands only add the flags
// they use; Load binds whichever are present.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file (default ./"+FileName+")")
	fs.String("packs-dir", defaults["packs_dir"].(string), "directory holding content packs")
	fs.String("overlay-dir", "", "directory for saved configs; empty keeps config.json inside each pack")
	fs.String("tag-prefix", defaults["tag_prefix"].(string), "namespace for instance storage tags")
	fs.String("log-level", defaults["log_level"].(string), "log level: debug, info, warn or error")
}

// AddServerFlags registers the listen address flags.
func AddServerFlags(fs *pflag.FlagSet) {
	fs.String("admin-addr", defaults["admin_addr"].(string), "admin menu listen address")
	fs.String("server-addr", defaults["server_addr"].(string), "inspection API listen address")
	fs.Bool("watch", false, "reload packs when files change")
}

// Load resolves the configuration. fs must already be parsed; it may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.TagPrefix) == "" {
		cfg.TagPrefix = capability.DefaultPrefix
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Logger builds a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
