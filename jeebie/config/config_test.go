package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jeebie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Slowdown)
	assert.True(t, cfg.Tiles)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend: headless
slowdown: 5
tiles: false
core:
  kind: pattern
  relocate_every: 30
headless:
  frames: 120
  snapshot_interval: 60
  snapshot_dir: out
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendHeadless, cfg.Backend)
	assert.Equal(t, 5, cfg.Slowdown)
	assert.False(t, cfg.Tiles)
	assert.Equal(t, 30, cfg.Core.RelocateEvery)
	assert.Equal(t, HeadlessConfig{Frames: 120, SnapshotInterval: 60, SnapshotDir: "out"}, cfg.Headless)
	assert.Equal(t, Default().Scale, cfg.Scale, "unset fields keep their defaults")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "slowdwn: 3\n"},
		{"malformed", "backend: [\n"},
		{"unknown backend", "backend: opengl\n"},
		{"wasm without path", "core:\n  kind: wasm\n"},
		{"bad scale", "scale: 0\n"},
		{"bad log level", "log_level: loud\n"},
		{"negative frames", "headless:\n  frames: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_SlowdownIsClampedNotRejected(t *testing.T) {
	cfg := Default()
	cfg.Slowdown = 0
	assert.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
