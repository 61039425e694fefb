package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-expanded-storage/internal/capability"
	"go-expanded-storage/internal/config"
	"go-expanded-storage/internal/loader"
	"go-expanded-storage/internal/scaffold"
	"go-expanded-storage/internal/storage"
)

func newPacks(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	cfg := scaffold.DefaultGeneratorConfig(root)
	_, _, err := scaffold.GenerateContentPack(cfg, scaffold.Options{Name: "Alpha", UniqueID: "me.alpha", Storages: []string{"Shared", "Alpha Chest"}}, nil)
	require.NoError(t, err)
	_, _, err = scaffold.GenerateContentPack(cfg, scaffold.Options{Name: "Beta", UniqueID: "me.beta", Storages: []string{"Shared", "Beta Chest"}}, nil)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, "not-a-pack"), 0o755))
	return root
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		PacksDir:     dir,
		TagPrefix:    capability.DefaultPrefix,
		LogLevel:     "info",
		Integrations: config.Integrations{Capabilities: true, Menu: true},
	}
}

func newSession(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	s, err := New(cfg, nil)
	require.NoError(t, err)
	return s
}

func TestReloadLoadsPacksInOrder(t *testing.T) {
	s := newSession(t, testConfig(newPacks(t)))

	reports, err := s.Reload()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, []string{"Shared"}, reports[1].Duplicates)

	s.View(func(l *loader.Loader) {
		assert.Equal(t, []string{"Alpha Chest", "Shared", "Beta Chest"}, l.AllNames())
		def, ok := l.Registry().Get("Shared")
		require.True(t, ok)
		assert.EqualValues(t, "me.alpha", def.Owner)
	})

	require.NotNil(t, s.Menu())
	assert.Len(t, s.Menu().Entries(), 2)
}

func TestUpdateSavesIntoPackDirectory(t *testing.T) {
	root := newPacks(t)
	s := newSession(t, testConfig(root))
	_, err := s.Reload()
	require.NoError(t, err)

	require.NoError(t, s.Menu().Set("me.alpha", "Alpha Chest", capability.CapacityOption.Name, "70"))
	require.NoError(t, s.Update(func(l *loader.Loader) error { return l.SaveDirty() }))

	assert.FileExists(t, filepath.Join(root, "alpha", storage.ConfigFileName))

	_, err = s.Reload()
	require.NoError(t, err)
	s.View(func(l *loader.Loader) {
		def, _ := l.Registry().Get("Alpha Chest")
		assert.Equal(t, 70, def.EffectiveCapacity())
	})
}

func TestOverlayDirKeepsConfigOutsidePacks(t *testing.T) {
	root := newPacks(t)
	cfg := testConfig(root)
	cfg.OverlayDir = filepath.Join(t.TempDir(), "overlays")
	s := newSession(t, cfg)
	assert.DirExists(t, cfg.OverlayDir)
	_, err := s.Reload()
	require.NoError(t, err)

	require.NoError(t, s.Menu().Set("me.alpha", "Alpha Chest", capability.CapacityOption.Name, "70"))
	require.NoError(t, s.Update(func(l *loader.Loader) error { return l.SaveDirty() }))

	assert.FileExists(t, filepath.Join(cfg.OverlayDir, "me.alpha.json"))
	assert.NoFileExists(t, filepath.Join(root, "alpha", storage.ConfigFileName))

	_, err = s.Reload()
	require.NoError(t, err)
	s.View(func(l *loader.Loader) {
		def, _ := l.Registry().Get("Alpha Chest")
		assert.Equal(t, 70, def.EffectiveCapacity())
	})
}

func TestOverlayDirUnusable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg := testConfig(t.TempDir())
	cfg.OverlayDir = filepath.Join(file, "overlays")
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestDuplicateUniqueIDKeepsFirstPackConfig(t *testing.T) {
	root := t.TempDir()
	gen := scaffold.DefaultGeneratorConfig(root)
	_, _, err := scaffold.GenerateContentPack(gen, scaffold.Options{Name: "A", UniqueID: "same.id", Storages: []string{"A Chest"}}, nil)
	require.NoError(t, err)
	_, _, err = scaffold.GenerateContentPack(gen, scaffold.Options{Name: "B", UniqueID: "same.id", Storages: []string{"B Chest"}}, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", storage.ConfigFileName), []byte(`{"A Chest": {"Capacity": 99}}`), 0o644))

	s := newSession(t, testConfig(root))
	reports, err := s.Reload()
	require.NoError(t, err)
	require.Len(t, reports, 1)

	s.View(func(l *loader.Loader) {
		def, ok := l.Registry().Get("A Chest")
		require.True(t, ok)
		assert.Equal(t, 99, def.EffectiveCapacity())
		_, ok = l.Registry().Get("B Chest")
		assert.False(t, ok)
	})
	require.NoError(t, s.Update(func(l *loader.Loader) error { return l.Save("same.id") }))
	assert.NoFileExists(t, filepath.Join(root, "b", storage.ConfigFileName))
}

func TestMenuDisabled(t *testing.T) {
	cfg := testConfig(newPacks(t))
	cfg.Integrations.Menu = false
	cfg.Integrations.Capabilities = false
	s := newSession(t, cfg)
	_, err := s.Reload()
	require.NoError(t, err)

	assert.Nil(t, s.Menu())
	s.View(func(l *loader.Loader) { assert.Empty(t, l.Features().Names()) })
}

func TestReloadMissingDirectory(t *testing.T) {
	s := newSession(t, testConfig(filepath.Join(t.TempDir(), "missing")))
	_, err := s.Reload()
	assert.Error(t, err)
}

func TestWatchReloadsOnChange(t *testing.T) {
	root := newPacks(t)
	s := newSession(t, testConfig(root))
	_, err := s.Reload()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan error, 16)
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 20*time.Millisecond, func(err error) { reloaded <- err }) }()

	_, _, err = scaffold.GenerateContentPack(scaffold.DefaultGeneratorConfig(root), scaffold.Options{Name: "Gamma", UniqueID: "me.gamma"}, nil)
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case err := <-reloaded:
			require.NoError(t, err)
			s.View(func(l *loader.Loader) { found = l.Registry().Has("Gamma") })
		case <-time.After(100 * time.Millisecond):
			// The first events may land before the watch is in place.
			require.NoError(t, os.WriteFile(filepath.Join(root, "gamma", "touch.txt"), []byte(time.Now().String()), 0o644))
		case <-deadline:
			t.Fatal("no reload after adding a pack")
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestIgnoredPaths(t *testing.T) {
	assert.True(t, ignored("/packs/alpha/config.json"))
	assert.True(t, ignored("/packs/alpha/.config.json.tmp-123"))
	assert.False(t, ignored("/packs/alpha/expanded-storage.json"))
}

func TestNameMatcher(t *testing.T) {
	m := &NameMatcher{}

	m.SetRules([]string{"Carp", " tuna "})
	assert.True(t, m.Matches("carp"))
	assert.True(t, m.Matches("Tuna"))
	assert.False(t, m.Matches("Stone"))
	assert.False(t, m.Matches(42))

	m.SetRules([]string{"!Stone"})
	assert.True(t, m.Matches("Wood"))
	assert.False(t, m.Matches("stone"))

	m.SetRules(nil)
	assert.False(t, m.Matches("Wood"))
}
