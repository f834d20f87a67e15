package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_DisabledDiscards(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: false, Output: &buf}))
	Info("hello")
	require.Zero(t, buf.Len())
}

func TestInit_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Output: &buf, Level: slog.LevelWarn}))
	t.Cleanup(func() { _ = Init(Options{}) })

	Info("skipped")
	Warn("kept", "path", "/soc")
	require.NotContains(t, buf.String(), "skipped")
	require.Contains(t, buf.String(), "msg=kept path=/soc")
}

func TestInit_JSONFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "fdtkit.log")
	require.NoError(t, Init(Options{Enabled: true, LogFile: file, JSON: true, Level: slog.LevelDebug}))
	t.Cleanup(func() { _ = Init(Options{}) })

	Debug("stage", "name", "merge")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"stage"`)
	require.Contains(t, string(data), `"name":"merge"`)
}
