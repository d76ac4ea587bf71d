package token_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oakmail/courier/pkg/errs"
	"github.com/oakmail/courier/pkg/token"
)

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store, err := token.NewFileStore(filepath.Join(t.TempDir(), "courier.token"))
	require.NoError(t, err)

	rec := &token.Record{
		RefreshToken: "refresh-abc",
		AccessToken:  "access-def",
		Expiry:       time.Date(2026, 8, 26, 10, 30, 0, 0, time.Local),
	}
	require.NoError(t, store.Save(rec))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, rec.RefreshToken, loaded.RefreshToken)
	require.Equal(t, rec.AccessToken, loaded.AccessToken)
	require.True(t, rec.Expiry.Equal(loaded.Expiry))
}

func TestFileStore_ExpiryFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "courier.token")
	store, err := token.NewFileStore(path)
	require.NoError(t, err)

	rec := &token.Record{
		RefreshToken: "r",
		AccessToken:  "a",
		Expiry:       time.Date(2026, 8, 26, 10, 30, 5, 0, time.Local),
	}
	require.NoError(t, store.Save(rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"expiry":"2026-08-26 10:30:05"`)
}

func TestFileStore_NotFound(t *testing.T) {
	t.Parallel()

	store, err := token.NewFileStore(filepath.Join(t.TempDir(), "courier.token"))
	require.NoError(t, err)

	_, err = store.Load()
	require.ErrorIs(t, err, errs.ErrTokenNotFound)
}

func TestFileStore_MalformedRecord(t *testing.T) {
	t.Parallel()

	t.Run("not json", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "courier.token")
		require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o600))

		store, err := token.NewFileStore(path)
		require.NoError(t, err)
		_, err = store.Load()
		require.ErrorIs(t, err, errs.ErrTokenNotFound)
	})

	t.Run("bad expiry", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "courier.token")
		require.NoError(t, os.WriteFile(path, []byte(`{"refresh":"r","access":"a","expiry":"tomorrow"}`), 0o600))

		store, err := token.NewFileStore(path)
		require.NoError(t, err)
		_, err = store.Load()
		require.ErrorIs(t, err, errs.ErrTokenNotFound)
	})
}

func TestFileStore_Permissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "courier.token")
	store, err := token.NewFileStore(path)
	require.NoError(t, err)

	rec := &token.Record{RefreshToken: "r", AccessToken: "a", Expiry: time.Now()}
	require.NoError(t, store.Save(rec))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := token.NewFileStore("")
	require.Error(t, err)
}
