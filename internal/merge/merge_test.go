package merge

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-expanded-storage/internal/model"
	"go-expanded-storage/internal/registry"
)

type fakeAssets map[string]model.Texture

func (f fakeAssets) HasFile(path string) bool {
	_, ok := f[path]
	return ok
}

func (f fakeAssets) LoadTexture(path string) (model.Texture, error) {
	tex, ok := f[path]
	if !ok {
		return model.Texture{}, fmt.Errorf("no such file %s", path)
	}
	return tex, nil
}

func proposal(capacity int, features ...string) *model.StorageDefinition {
	return &model.StorageDefinition{Capacity: capacity, EnabledFeatures: model.NewFeatureSet(features...)}
}

func TestMergeFirstSourceWins(t *testing.T) {
	engine := NewEngine(nil)
	reg := registry.New()

	a := proposal(36)
	reportA := engine.Merge(Source{ID: "a.pack"}, map[string]*model.StorageDefinition{"X": a}, nil, reg)
	require.Equal(t, []string{"X"}, reportA.Accepted)

	reportB := engine.Merge(Source{ID: "b.pack"}, map[string]*model.StorageDefinition{"X": proposal(9), "Y": proposal(0)}, nil, reg)

	got, ok := reg.Get("X")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, model.SourceID("a.pack"), got.Owner)

	assert.Equal(t, []string{"X"}, reportB.Duplicates)
	assert.Equal(t, []string{"Y"}, reportB.Accepted)
	dups := reportB.WarningsOf(WarnDuplicateName)
	require.Len(t, dups, 1)
	assert.True(t, errors.Is(dups[0], registry.ErrDuplicateName))
	assert.False(t, reportB.NothingToLoad)
}

func TestMergeEmptySourceLeavesRegistryUnchanged(t *testing.T) {
	engine := NewEngine(nil)
	reg := registry.New()
	engine.Merge(Source{ID: "a.pack"}, map[string]*model.StorageDefinition{"X": proposal(1)}, nil, reg)

	t.Run("no proposals", func(t *testing.T) {
		report := engine.Merge(Source{ID: "b.pack"}, nil, nil, reg)
		assert.True(t, report.NothingToLoad)
		assert.False(t, report.Loaded())
		assert.ErrorIs(t, report.Err(), ErrNothingToLoad)
		assert.Equal(t, []string{"X"}, reg.Names())
	})

	t.Run("only duplicates", func(t *testing.T) {
		overlay := model.ConfigOverlay{}
		report := engine.Merge(Source{ID: "b.pack"}, map[string]*model.StorageDefinition{"X": proposal(2)}, overlay, reg)
		assert.True(t, report.NothingToLoad)
		assert.Equal(t, []string{"X"}, report.Duplicates)
		assert.Empty(t, overlay, "overlay must not be touched")
		assert.Equal(t, 1, reg.Len())
	})
}

func TestMergeSeedsConfigFromAuthorDefaults(t *testing.T) {
	reg := registry.New()
	def := proposal(5, "A")

	report := NewEngine(nil).Merge(Source{ID: "a.pack"}, map[string]*model.StorageDefinition{"X": def}, nil, reg)

	require.True(t, report.NeedsWriteBack())
	assert.Equal(t, []string{"X"}, report.WriteBack)
	cfg := report.Overlay["X"]
	require.NotNil(t, cfg)
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, []string{"A"}, cfg.EnabledFeatures.Sorted())
	assert.Same(t, cfg, def.Config)

	cfg.SetFeature("B", true)
	assert.False(t, def.EnabledFeatures.Has("B"), "seeded config must not alias author defaults")
}

func TestMergeUsesPersistedConfig(t *testing.T) {
	reg := registry.New()
	overlay := model.ConfigOverlay{
		"X":       {Capacity: 70, EnabledFeatures: model.NewFeatureSet("CanCarry")},
		"Removed": {Capacity: 1},
	}

	report := NewEngine(nil).Merge(Source{ID: "a.pack"}, map[string]*model.StorageDefinition{"X": proposal(5, "A")}, overlay, reg)

	assert.False(t, report.NeedsWriteBack())
	def, _ := reg.Get("X")
	assert.Equal(t, 70, def.EffectiveCapacity())
	assert.True(t, def.EffectiveFeatures().Has("CanCarry"))
	assert.Contains(t, report.Overlay, "Removed", "inert entries are kept")
	assert.False(t, reg.Has("Removed"))
}

func TestMergeFormatClassification(t *testing.T) {
	assets := fakeAssets{
		"chest.png":              {Path: "chest.png", Width: 16, Height: 32},
		"assets/fallback.png":    {Path: "assets/fallback.png", Width: 16, Height: 32},
		"assets/Stone Chest.png": {Path: "assets/Stone Chest.png", Width: 16, Height: 32},
	}
	proposed := map[string]*model.StorageDefinition{
		"Stone Chest":  {Image: "assets/Stone Chest.png"},
		"Chest":        {},
		"Custom Chest": {Image: "chest.png"},
		"Fallback":     {Image: "fallback.png"},
		"Old Chest":    {},
		"Broken Chest": {Image: "missing.png"},
	}
	reg := registry.New()

	report := NewEngine(nil).Merge(Source{ID: "a.pack", Assets: assets}, proposed, nil, reg)
	require.Len(t, report.Accepted, len(proposed))

	want := map[string]model.Format{
		"Stone Chest":  model.FormatVanilla,
		"Chest":        model.FormatVanilla,
		"Custom Chest": model.FormatContentDefined,
		"Fallback":     model.FormatContentDefined,
		"Old Chest":    model.FormatLegacy,
		"Broken Chest": model.FormatLegacy,
	}
	for name, format := range want {
		def, ok := reg.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, format, def.Format, name)
	}

	fallback, _ := reg.Get("Fallback")
	assert.Equal(t, "assets/fallback.png", fallback.Image)

	missing := report.WarningsOf(WarnMissingAsset)
	require.Len(t, missing, 1)
	assert.Equal(t, "Broken Chest", missing[0].Name)
	assert.ErrorIs(t, missing[0], ErrMissingAsset)
}

func TestMergeVanillaIgnoresMissingAssets(t *testing.T) {
	reg := registry.New()
	NewEngine(nil).Merge(Source{ID: "a.pack"}, map[string]*model.StorageDefinition{"Mini-Fridge": {Image: "fridge.png"}}, nil, reg)

	def, ok := reg.Get("Mini-Fridge")
	require.True(t, ok)
	assert.Equal(t, model.FormatVanilla, def.Format)
}

func TestMergeSkipsUnnamed(t *testing.T) {
	reg := registry.New()
	report := NewEngine(nil).Merge(Source{ID: "a.pack"}, map[string]*model.StorageDefinition{" ": proposal(1), "Nil": nil}, nil, reg)

	assert.True(t, report.NothingToLoad)
	assert.Zero(t, reg.Len())
}

func TestMergeNeverCommitsDuplicateNames(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	engine := NewEngine(nil)
	reg := registry.New()
	owners := map[string]model.SourceID{}

	for pass := 0; pass < 40; pass++ {
		source := model.SourceID(fmt.Sprintf("pack.%d", pass))
		proposed := map[string]*model.StorageDefinition{}
		n := rng.Intn(5)
		for i := 0; i < n; i++ {
			proposed[fmt.Sprintf("Chest %d", rng.Intn(12))] = proposal(rng.Intn(100))
		}

		report := engine.Merge(Source{ID: source}, proposed, nil, reg)
		for _, name := range report.Accepted {
			_, seen := owners[name]
			require.False(t, seen, "name %s committed twice", name)
			owners[name] = source
		}

		seen := map[string]bool{}
		for def := range reg.All() {
			require.False(t, seen[def.Name])
			seen[def.Name] = true
			assert.Equal(t, owners[def.Name], def.Owner)
		}
		assert.Equal(t, len(owners), reg.Len())
	}
}

func TestSkippedReport(t *testing.T) {
	cause := errors.New("bad json")
	report := Skipped("a.pack", cause)

	assert.True(t, report.NothingToLoad)
	assert.ErrorIs(t, report.Err(), ErrNothingToLoad)
	assert.ErrorIs(t, report.Err(), cause)
	assert.Contains(t, report.Warnings[0].Error(), "a.pack")
}
