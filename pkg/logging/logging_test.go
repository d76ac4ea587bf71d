package logging

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFileHook_LineFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "courier.log")
	hook, err := NewFileHook(path)
	require.NoError(t, err)
	hook.now = func() time.Time { return time.Date(2026, 8, 26, 10, 30, 5, 0, time.Local) }

	logger := zerolog.New(io.Discard).Hook(hook)
	logger.Info().Str("strategy", "isp-relay").Msg("Email sent.")
	logger.Error().Msg("Error sending email")
	require.NoError(t, hook.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "2026-08-26 10:30:05\tEmail sent.\n2026-08-26 10:30:05\tError sending email\n", string(data))
}

func TestFileHook_Appends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "courier.log")
	require.NoError(t, os.WriteFile(path, []byte("existing line\n"), 0o644))

	hook, err := NewFileHook(path)
	require.NoError(t, err)

	logger := zerolog.New(io.Discard).Hook(hook)
	logger.Info().Msg("next line")
	require.NoError(t, hook.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "existing line\n")
	require.Contains(t, string(data), "\tnext line\n")
}

func TestFileHook_SkipsEmptyMessages(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "courier.log")
	hook, err := NewFileHook(path)
	require.NoError(t, err)

	logger := zerolog.New(io.Discard).Hook(hook)
	logger.Info().Str("key", "value").Send()
	require.NoError(t, hook.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, data)
}
