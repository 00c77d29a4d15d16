package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gochat-dev/chatclient/internal/types"
)

func TestFileStore(t *testing.T) {
	t.Run("load of a missing file is an empty state", func(t *testing.T) {
		fs := NewFileStore(t.TempDir())

		state, err := fs.Load()
		assert.NoError(t, err)
		assert.Equal(t, State{}, state)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		fs := NewFileStore(t.TempDir())

		saved := State{
			User:         &types.UserDetail{Id: "u1", Name: "alice"},
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
		}
		require.NoError(t, fs.Save(saved))

		loaded, err := fs.Load()
		assert.NoError(t, err)
		assert.Equal(t, saved, loaded)
	})

	t.Run("state file is owner-only", func(t *testing.T) {
		dir := t.TempDir()
		fs := NewFileStore(dir)
		require.NoError(t, fs.Save(State{AccessToken: "access-1"}))

		info, err := os.Stat(filepath.Join(dir, "session.json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("save creates the state directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "state")
		fs := NewFileStore(dir)

		require.NoError(t, fs.Save(State{AccessToken: "access-1"}))

		_, err := os.Stat(filepath.Join(dir, "session.json"))
		assert.NoError(t, err)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("{oops"), 0600))

		_, err := NewFileStore(dir).Load()
		assert.Error(t, err)
	})

	t.Run("clear removes the file and is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		fs := NewFileStore(dir)
		require.NoError(t, fs.Save(State{AccessToken: "access-1"}))

		assert.NoError(t, fs.Clear())
		_, err := os.Stat(filepath.Join(dir, "session.json"))
		assert.True(t, os.IsNotExist(err))

		assert.NoError(t, fs.Clear())
	})
}
