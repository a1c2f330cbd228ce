package di

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-library/config"
	"community-library/library"
)

func TestContainer_BuildsManager(t *testing.T) {
	for _, backend := range []string{"file", "sqlite", "badger"} {
		t.Run(backend, func(t *testing.T) {
			t.Chdir(t.TempDir())
			dir := t.TempDir()
			var logs bytes.Buffer
			c := NewContainer(Options{
				Overrides: config.Overrides{Backend: backend, DataPath: dir, LogLevel: "debug"},
				LogWriter: &logs,
			})

			mgr, err := c.Manager()
			require.NoError(t, err)
			_, err = mgr.Authenticate(library.DefaultAdminUsername, library.DefaultAdminPassword)
			require.NoError(t, err)
			_, err = mgr.AddBook(library.BookInput{Title: "Dune", Author: "Frank Herbert", ISBN: "isbn"})
			require.NoError(t, err)

			again, err := c.Manager()
			require.NoError(t, err)
			assert.Same(t, mgr, again)
			assert.Contains(t, logs.String(), "storage opened")
			require.NoError(t, c.Close())

			reopened := NewContainer(Options{
				Overrides: config.Overrides{Backend: backend, DataPath: dir},
				LogWriter: &logs,
			})
			t.Cleanup(func() { reopened.Close() })
			mgr, err = reopened.Manager()
			require.NoError(t, err)
			assert.Len(t, mgr.ListBooks(), 1)
		})
	}
}

func TestContainer_FileBackendLayout(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	c := NewContainer(Options{Overrides: config.Overrides{DataPath: dir}, LogWriter: &bytes.Buffer{}})
	t.Cleanup(func() { c.Close() })

	_, err := c.Manager()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "users.txt"))
	require.NoError(t, err)
	assert.Equal(t, "admin|admin123|0\n", string(data))
}

func TestContainer_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	c := NewContainer(Options{Overrides: config.Overrides{Backend: "postgres"}, LogWriter: &bytes.Buffer{}})

	_, err := c.Manager()
	assert.ErrorContains(t, err, "invalid storage backend")
	assert.NoError(t, c.Close())
}
