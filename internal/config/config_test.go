package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcodarr/monitor/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "192.168.1.100", cfg.Coordinator.Address)
	assert.Equal(t, 5*time.Second, cfg.Coordinator.SSHTimeout)
	assert.Equal(t, "jellyfin", cfg.Jellyfin.Container)
	assert.Equal(t, 8096, cfg.Jellyfin.Port)
	assert.Equal(t, "/data/media", cfg.Mounts.Media)
	assert.Equal(t, "/config/cache", cfg.Mounts.Cache)
	assert.Equal(t, 10*time.Second, cfg.Monitor.RefreshInterval)
	assert.Equal(t, 100, cfg.Monitor.LogLines)
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `coordinator:
  address: 10.0.0.50
  user: admin
  ssh_timeout: 8s
jellyfin:
  container: jellyfin-docker
  port: 8920
  api_key: secret
mounts:
  media: /data/media
  cache: /config/cache
monitor:
  refresh_interval: 5s
  log_lines: 50
  node_timeout: 20s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.50", cfg.Coordinator.Address)
	assert.Equal(t, "admin", cfg.Coordinator.User)
	assert.Equal(t, 8*time.Second, cfg.Coordinator.SSHTimeout)
	assert.Equal(t, "jellyfin-docker", cfg.Jellyfin.Container)
	assert.Equal(t, 8920, cfg.Jellyfin.Port)
	assert.Equal(t, "secret", cfg.Jellyfin.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Monitor.RefreshInterval)
	assert.Equal(t, 50, cfg.Monitor.LogLines)
	assert.Equal(t, 20*time.Second, cfg.Monitor.NodeTimeout)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `coordinator:
  address: nas.local
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nas.local", cfg.Coordinator.Address)
	// Everything else falls back to defaults
	assert.Equal(t, "jellyfin", cfg.Jellyfin.Container)
	assert.Equal(t, 5*time.Second, cfg.Coordinator.SSHTimeout)
	assert.Equal(t, 100, cfg.Monitor.LogLines)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coordinator: [not: valid"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFindExplicitMissing(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFindExplicitExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolvedUser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coordinator.User = "jelly"
	assert.Equal(t, "jelly", cfg.ResolvedUser())

	cfg.Coordinator.User = ""
	t.Setenv("USER", "fallback")
	assert.Equal(t, "fallback", cfg.ResolvedUser())
}

func TestJellyfinURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coordinator.Address = "10.1.2.3"
	cfg.Jellyfin.Port = 8096
	assert.Equal(t, "http://10.1.2.3:8096", cfg.JellyfinURL())
}
