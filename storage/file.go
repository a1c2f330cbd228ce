package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxLineSize bounds a single record line.
const maxLineSize = 1 << 20

// FileBackend keeps each resource as a plain text file in one directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory holding the resource files.
func (b *FileBackend) Dir() string { return b.dir }

// Path returns the file path of r.
func (b *FileBackend) Path(r Resource) string { return filepath.Join(b.dir, string(r)) }

func (b *FileBackend) Name() string { return KindFile }

func (b *FileBackend) Close() error { return nil }

// ReadLines reads r line by line.
func (b *FileBackend) ReadLines(r Resource) ([]string, error) {
	f, err := os.Open(b.Path(r))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", r, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return lines, fmt.Errorf("read %s: %w", r, err)
	}
	return lines, nil
}

// WriteLines writes to a temp file next to the target and renames it into
// place, so a crash mid-write leaves the previous version intact.
func (b *FileBackend) WriteLines(r Resource, lines []string) error {
	tmp, err := os.CreateTemp(b.dir, "."+string(r)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", r, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", r, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", r, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", r, err)
	}
	if err := os.Rename(tmpName, b.Path(r)); err != nil {
		return fmt.Errorf("replace %s: %w", r, err)
	}
	return nil
}
