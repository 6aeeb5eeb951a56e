package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calendar-mcp/internal/faults"
)

func TestStoreLoadAbsent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "token.json"))

	record, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, record, "absent token file must load as nil record")
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "token.json"))

	want := &TokenRecord{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		Expiry:       time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second load must be byte-for-byte stable.
	again, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestStoreSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "token.json")
	store := NewStore(path)

	require.NoError(t, store.Save(&TokenRecord{AccessToken: "a", RefreshToken: "r"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "token.json"))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(&TokenRecord{AccessToken: "a", RefreshToken: "r"}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "token.json", entries[0].Name())
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.Equal(t, faults.StorageError, faults.KindOf(err))
}

func TestStoreOverwriteReplacesRecord(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "token.json"))

	require.NoError(t, store.Save(&TokenRecord{AccessToken: "old", RefreshToken: "r"}))
	require.NoError(t, store.Save(&TokenRecord{AccessToken: "new", RefreshToken: "r"}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
}
