package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAbbreviations, cfg.Docs.Abbreviations)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	writeFile(t, path, `
log_level: debug
db: /tmp/x.db
docs:
  abbreviations: ["approx."]
  highlight: false
limits:
  max_files: 5
`)
	cfg, err := Load(context.Background(), path, dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/x.db", cfg.DB)
	assert.Equal(t, []string{"approx."}, cfg.Docs.Abbreviations)
	assert.False(t, cfg.Docs.Highlight)
	assert.Equal(t, 5, cfg.Limits.MaxFiles)
	assert.Equal(t, Default().Limits.MaxArchiveBytes, cfg.Limits.MaxArchiveBytes)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yml"), "")
	assert.Error(t, err)
}

func TestLoad_DiscoversUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	writeFile(t, filepath.Join(root, ".autodoc.yml"), "listen: \":9999\"\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectConfig(context.Background(), nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".autodoc.yml"), found)

	cfg, err := Load(context.Background(), "", nested)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Listen)
}

func TestFindProjectConfig_StopsAtVCSRoot(t *testing.T) {
	outer := t.TempDir()
	writeFile(t, filepath.Join(outer, ".autodoc.yml"), "db: outer.db\n")
	repo := filepath.Join(outer, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))

	found, err := FindProjectConfig(context.Background(), repo)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AUTODOC_LOG_LEVEL", "warn")
	t.Setenv("AUTODOC_HIGHLIGHT", "false")
	t.Setenv("AUTODOC_MAX_FILES", "7")
	t.Setenv("AUTODOC_MAX_ARCHIVE_BYTES", "1024")

	cfg := Default()
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.Docs.Highlight)
	assert.Equal(t, 7, cfg.Limits.MaxFiles)
	assert.Equal(t, int64(1024), cfg.Limits.MaxArchiveBytes)

	t.Setenv("AUTODOC_MAX_FILES", "many")
	assert.Error(t, LoadFromEnv(Default()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown level", func(c *Config) { c.LogLevel = "chatty" }},
		{"zero files", func(c *Config) { c.Limits.MaxFiles = 0 }},
		{"negative bytes", func(c *Config) { c.Limits.MaxArchiveBytes = -1 }},
		{"abbreviation without period", func(c *Config) { c.Docs.Abbreviations = []string{"eg"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
