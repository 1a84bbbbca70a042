package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRecursionLimit, cfg.RecursionLimit)
	assert.Equal(t, DefaultEntry, cfg.Entry)
	assert.Equal(t, DefaultAPIRoot, cfg.APIRoot)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"author", "email", "url", "system", "file_name"}, cfg.Meta)
}

func TestLoadFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yml := "recursion_limit: 4\nentry: main.mu\ntimeout: 3s\nmeta: [author]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mufmt.yaml"), []byte(yml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.RecursionLimit)
	assert.Equal(t, "main.mu", cfg.Entry)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"author"}, cfg.Meta)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MUFMT_RECURSION_LIMIT", "7")
	t.Setenv("MUFMT_CREDENTIALS_TOKEN", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RecursionLimit)
	assert.Equal(t, "secret", cfg.Credentials.Token)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsEntryWithSeparator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entry: lib/main.mu\n"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "bare filename")
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mufmt.yaml")
	cfg := Default()
	cfg.Credentials = Credentials{User: "jane", Token: "hunter2"}
	require.NoError(t, Write(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")

	loaded, err := Load(path)
	require.NoError(t, err)
	want := Default()
	assert.Equal(t, want, *loaded)
}

func TestNormalize(t *testing.T) {
	cfg := Config{APIRoot: "http://127.0.0.1:8080/repos/"}.Normalize()
	assert.Equal(t, DefaultRecursionLimit, cfg.RecursionLimit)
	assert.Equal(t, DefaultEntry, cfg.Entry)
	assert.Equal(t, "http://127.0.0.1:8080/repos", cfg.APIRoot)
	assert.Equal(t, 8, cfg.Concurrency)
}
