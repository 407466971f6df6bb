package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "latch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
deadline_threshold: 8
journal: /tmp/latch.db
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), cfg.DeadlineThreshold)
	assert.Equal(t, "/tmp/latch.db", cfg.Journal)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeConfig(t, `journal: out.db`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cfg.DeadlineThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, `deadline_treshold: 8`)

	_, err := Load(path)
	assert.Error(t, err, "typoed field must not be ignored")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `log_level: loud`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "log_level")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
