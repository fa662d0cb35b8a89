package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/flip/internal/config"
	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/remote"
	"github.com/pders01/flip/internal/saved"
	"github.com/pders01/flip/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// localConfig writes a config file using a bolt database in a temp dir.
func localConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.TestConfig()
	cfg.Database.Path = filepath.Join(dir, "flip.db")
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(cfg, path))
	return path, cfg.Database.Path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "News, one card at a time")
	assert.Contains(t, out, "github.com/pders01/flip")
	assert.NotContains(t, out, "vdev")
}

func TestGenerateConfigCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USER", "tester")

	out, err := execute(t, "config", "generate")
	require.NoError(t, err)

	configFile := filepath.Join(home, ".config", "flip", "config.toml")
	assert.Contains(t, out, configFile)
	_, err = os.Stat(configFile)
	require.NoError(t, err)

	cfg, err := config.Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Feed.DefaultCategory)
}

func TestGenerateConfigOutputFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flip.toml")

	_, err := execute(t, "config", "generate", "-o", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSavedListLocal(t *testing.T) {
	cfgPath, dbPath := localConfig(t)

	out, err := execute(t, "--config", cfgPath, "saved", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved articles")

	db, err := storage.NewStore(dbPath, time.Second)
	require.NoError(t, err)
	_, err = db.Create(context.Background(), "tester", saved.Draft{
		Title:  "Community garden opens",
		URL:    "https://good.test/garden",
		Source: "Good News",
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err = execute(t, "--config", cfgPath, "saved", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Community garden opens")
	assert.Contains(t, out, "https://good.test/garden")

	out, err = execute(t, "--config", cfgPath, "saved", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "tester")
}

func TestDBFlagOverridesConfig(t *testing.T) {
	cfgPath, _ := localConfig(t)
	other := filepath.Join(t.TempDir(), "other.db")

	_, err := execute(t, "--config", cfgPath, "--db", other, "saved", "list")
	require.NoError(t, err)
	_, err = os.Stat(other)
	assert.NoError(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("USER", "tester")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[remote]\nmode = \"carrier-pigeon\"\n"), 0o600))

	_, err := execute(t, "--config", path, "saved", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote.mode")
}

func TestNewsSource(t *testing.T) {
	cfg := config.TestConfig()

	cfg.Feed.Source = "api"
	src, err := newsSource(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &remote.Client{}, src)

	cfg.Feed.Source = "rss"
	src, err = newsSource(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &feed.RSSSource{}, src)

	cfg.Feed.Source = "miniflux"
	src, err = newsSource(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &feed.MinifluxSource{}, src)

	cfg.Feed.Source = "telegraph"
	_, err = newsSource(cfg, nil)
	assert.Error(t, err)

	cfg.Feed.Source = "api"
	assert.IsType(t, &feed.RSSSource{}, serverNews(cfg))
}

func TestServerDBPath(t *testing.T) {
	assert.Equal(t, "/tmp/flip-server.db", serverDBPath("/tmp/flip.db"))
	assert.Equal(t, "/tmp/flip-server", serverDBPath("/tmp/flip"))
}
