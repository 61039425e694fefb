// Package session wires configuration, content packs and the loader
// together for the commands, and serializes access to the loader.
package session

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go-expanded-storage/internal/config"
	"go-expanded-storage/internal/configmenu"
	"go-expanded-storage/internal/contentpack"
	"go-expanded-storage/internal/loader"
	"go-expanded-storage/internal/merge"
	"go-expanded-storage/internal/storage"
)

// Session is one loaded set of content packs. The loader is not safe for
// concurrent use; all access goes through View and Update.
type Session struct {
	mu     sync.RWMutex
	cfg    *config.Config
	logger *slog.Logger
	store  storage.OverlayStore
	packs  *storage.PackStore
	loader *loader.Loader
	menu   *configmenu.Menu
}

// New builds a session from cfg. Nothing is loaded until Reload.
// Overlays are kept in each pack directory unless cfg.OverlayDir is set.
func New(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{cfg: cfg, logger: logger}
	if cfg.OverlayDir != "" {
		store, err := storage.NewJSONStore(cfg.OverlayDir)
		if err != nil {
			return nil, err
		}
		s.store = store
	} else {
		s.packs = storage.NewPackStore()
		s.store = s.packs
	}

	opts := loader.Options{
		TagPrefix:           cfg.TagPrefix,
		Logger:              logger,
		Overlays:            s.store,
		Matcher:             &NameMatcher{},
		DisableCapabilities: !cfg.Integrations.Capabilities,
	}
	if cfg.Integrations.Menu {
		s.menu = configmenu.New(logger)
		opts.Menu = s.menu
	}
	s.loader = loader.New(opts)
	return s, nil
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Menu returns the configuration menu, or nil when the menu integration is off.
func (s *Session) Menu() *configmenu.Menu { return s.menu }

// Reload discovers every pack under the packs directory and loads them
// from scratch.
func (s *Session) Reload() ([]*merge.Report, error) {
	packs, err := contentpack.Discover(s.cfg.PacksDir, s.logger)
	if err != nil {
		return nil, fmt.Errorf("discovering content packs in %s: %w", s.cfg.PacksDir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sources := make([]loader.Source, 0, len(packs))
	for _, pack := range packs {
		if s.packs != nil {
			s.packs.Register(pack.ID(), pack.Dir())
		}
		sources = append(sources, pack)
	}
	reports := s.loader.Reload(sources)
	s.logger.Info("Loaded content packs", "dir", s.cfg.PacksDir, "packs", len(packs), "storages", s.loader.Registry().Len())
	return reports, nil
}

// View runs fn with shared access to the loader.
func (s *Session) View(fn func(l *loader.Loader)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.loader)
}

// Update runs fn with exclusive access to the loader.
func (s *Session) Update(fn func(l *loader.Loader) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.loader)
}
