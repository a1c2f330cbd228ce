package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileBackend(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sqlite, err := NewSQLiteBackend(filepath.Join(dir, "library.db"))
	require.NoError(t, err)
	kv, err := NewBadgerBackend(filepath.Join(dir, "badger"))
	require.NoError(t, err)

	all := map[string]Backend{KindFile: file, KindSQLite: sqlite, KindBadger: kv}
	t.Cleanup(func() {
		for _, b := range all {
			b.Close()
		}
	})
	return all
}

func TestBackends_MissingResource(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.ReadLines(Books)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestBackends_RewriteReplacesContent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.WriteLines(Loans, []string{"a", "b", "c"}))
			require.NoError(t, b.WriteLines(Loans, []string{"x", "y"}))

			lines, err := b.ReadLines(Loans)
			require.NoError(t, err)
			assert.Equal(t, []string{"x", "y"}, lines)
		})
	}
}

func TestBackends_EmptyResourceExists(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.WriteLines(Users, nil))

			lines, err := b.ReadLines(Users)
			require.NoError(t, err)
			assert.Empty(t, lines)
		})
	}
}

func TestBackends_ResourcesAreIndependent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.WriteLines(Books, []string{"1|Dune|Herbert|isbn|1"}))
			require.NoError(t, b.WriteLines(Counters, []string{"2 1"}))

			books, err := b.ReadLines(Books)
			require.NoError(t, err)
			assert.Equal(t, []string{"1|Dune|Herbert|isbn|1"}, books)

			_, err = b.ReadLines(Users)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSQLiteBackend_LargeRewrite(t *testing.T) {
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "big.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	lines := make([]string, 1234)
	for i := range lines {
		lines[i] = "line with 'quotes' and \"double\" quotes"
	}
	require.NoError(t, b.WriteLines(Loans, lines))

	got, err := b.ReadLines(Loans)
	require.NoError(t, err)
	assert.Len(t, got, len(lines))
	assert.Equal(t, lines[0], got[0])
}

func TestSQLiteBackend_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	b, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	require.NoError(t, b.WriteLines(Users, []string{"admin|admin123|0"}))
	require.NoError(t, b.Close())

	b, err = NewSQLiteBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	lines, err := b.ReadLines(Users)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin|admin123|0"}, lines)
}

func TestFileBackend_StripsCarriageReturns(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(b.Path(Users), []byte("admin|admin123|0\r\nbob|pw|1\r\n"), 0o644))

	lines, err := b.ReadLines(Users)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin|admin123|0", "bob|pw|1"}, lines)
}

func TestFileBackend_NoTempFilesLeft(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, b.WriteLines(Books, []string{"1|T|A|I|1"}))

	entries, err := os.ReadDir(b.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(Books), entries[0].Name())

	data, err := os.ReadFile(b.Path(Books))
	require.NoError(t, err)
	assert.Equal(t, "1|T|A|I|1\n", string(data))
}

func TestInMemoryBadgerBackend(t *testing.T) {
	b, err := NewInMemoryBadgerBackend()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	require.NoError(t, b.WriteLines(Counters, []string{"7 3"}))
	lines, err := b.ReadLines(Counters)
	require.NoError(t, err)
	assert.Equal(t, []string{"7 3"}, lines)
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("postgres", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestOpen_DefaultsToFile(t *testing.T) {
	b, err := Open("", t.TempDir())
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, KindFile, b.Name())
}
