package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runCLI runs the CLI inside a fresh working directory so no stray config
// file is picked up.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func newPacksDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runCLI(t, "new-pack", "--packs-dir", dir, "--name", "Alpha", "--author", "Me", "--storage", "Shared,Alpha Chest")
	require.NoError(t, err)
	_, err = runCLI(t, "new-pack", "--packs-dir", dir, "--name", "Beta", "--author", "Me", "--storage", "Shared")
	require.NoError(t, err)
	return dir
}

func TestUsage(t *testing.T) {
	out, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: storage-cli <command>")
	assert.Contains(t, out, "new-pack")

	_, err = runCLI(t, "bogus")
	assert.ErrorContains(t, err, "unknown command")
}

func TestListShowsDuplicates(t *testing.T) {
	dir := newPacksDir(t)

	out, err := runCLI(t, "list", "--packs-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "- Alpha Chest [Legacy] capacity=36 features=CanCarry")
	assert.Contains(t, out, "x Shared (duplicate, ignored)")
	assert.Contains(t, out, "(nothing to load)")
}

func TestListEmpty(t *testing.T) {
	out, err := runCLI(t, "list", "--packs-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No content packs found")
}

func TestOwnedAndShow(t *testing.T) {
	dir := newPacksDir(t)
	id := readUniqueID(t, filepath.Join(dir, "alpha"))

	out, err := runCLI(t, "owned", "--packs-dir", dir, id)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Chest\nShared\n", out)

	out, err = runCLI(t, "show", "--packs-dir", dir, "Alpha Chest")
	require.NoError(t, err)
	var shown map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "Alpha Chest", shown["name"])
	assert.Equal(t, 36, shown["capacity"])
	assert.Equal(t, "Legacy", shown["format"])

	_, err = runCLI(t, "show", "--packs-dir", dir, "Missing")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	dir := newPacksDir(t)

	out, err := runCLI(t, "resolve", "--packs-dir", dir, "--feature", "Capacity", "other=x", "furyx639.ExpandedStorage/Storage=Shared")
	require.NoError(t, err)
	assert.Equal(t, "36\n", out)

	out, err = runCLI(t, "resolve", "--packs-dir", dir, "--feature", "Capacity", "furyx639.ExpandedStorage/Storage=Nope")
	require.NoError(t, err)
	assert.Equal(t, "<none>\n", out)

	_, err = runCLI(t, "resolve", "--packs-dir", dir, "--feature", "Capacity", "broken")
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	dir := newPacksDir(t)

	out, err := runCLI(t, "dump", "--packs-dir", dir)
	require.NoError(t, err)

	var doc struct {
		TagKey   string                    `yaml:"tagKey"`
		Storages []map[string]any          `yaml:"storages"`
		Features map[string]map[string]any `yaml:"features"`
		Warnings []map[string]any          `yaml:"warnings"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "furyx639.ExpandedStorage/Storage", doc.TagKey)
	assert.Len(t, doc.Storages, 2)
	assert.Equal(t, map[string]any{"Alpha Chest": true, "Shared": true}, doc.Features["ExpandedMenu"])
	assert.Equal(t, 36, doc.Features["Capacity"]["Shared"])

	kinds := map[string]int{}
	for _, w := range doc.Warnings {
		kinds[w["kind"].(string)]++
	}
	assert.Equal(t, 1, kinds["DuplicateName"])
	assert.Equal(t, 1, kinds["NothingToLoad"])
}

func TestSaveWritesSeededConfig(t *testing.T) {
	dir := newPacksDir(t)

	out, err := runCLI(t, "save", "--packs-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved")

	data, err := os.ReadFile(filepath.Join(dir, "alpha", "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Alpha Chest"`)
	assert.NoFileExists(t, filepath.Join(dir, "beta", "config.json"))
}

func TestAddStorage(t *testing.T) {
	dir := newPacksDir(t)

	_, err := runCLI(t, "add-storage", "--pack", filepath.Join(dir, "beta"), "--name", "Beta Chest")
	require.NoError(t, err)

	out, err := runCLI(t, "list", "--packs-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "- Beta Chest")
	assert.False(t, strings.Contains(out, "(nothing to load)"))

	_, err = runCLI(t, "add-storage", "--pack", filepath.Join(dir, "beta"))
	assert.Error(t, err)
}

func readUniqueID(t *testing.T, packDir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(packDir, "manifest.json"))
	require.NoError(t, err)
	var manifest struct{ UniqueID string }
	require.NoError(t, json.Unmarshal(data, &manifest))
	return manifest.UniqueID
}
