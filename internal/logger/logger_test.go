package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledDiscards(t *testing.T) {
	require.NoError(t, Init(Options{}))
	defer Close()
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))
}

func TestInit_FileJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir}))
	Info("sweep", "collected", 3)
	Debug("dropped below info")
	Close()

	name := logPrefix + time.Now().Format(dateLayout) + logSuffix
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "sweep", rec["msg"])
	assert.EqualValues(t, 3, rec["collected"])
}

func TestInit_VerboseAndFile(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir, Verbose: true, Stderr: &stderr}))
	Debug("grow", "slots", 512)
	Warn("poisoned")
	L.With("allocator", "default").Info("scoped")
	Close()

	assert.Contains(t, stderr.String(), "msg=grow")
	assert.Contains(t, stderr.String(), "msg=poisoned")
	assert.Contains(t, stderr.String(), "allocator=default")

	data, err := os.ReadFile(filepath.Join(dir, logPrefix+time.Now().Format(dateLayout)+logSuffix))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"grow"`, "file stays at info")
	assert.Contains(t, string(data), `"poisoned"`)
	assert.Contains(t, string(data), `"allocator":"default"`)
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	files := map[string]bool{ // name -> survives
		"safememctl-2024-02-28.log": true,
		"safememctl-2024-01-01.log": false,
		"safememctl-garbage.log":    true,
		"other-2020-01-01.log":      true,
	}
	for name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	cleanOldLogs(dir, now)

	for name, survives := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if survives {
			assert.NoError(t, err, name)
		} else {
			assert.True(t, os.IsNotExist(err), name)
		}
	}
}
