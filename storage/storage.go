// Package storage holds the backing stores for the library's four text
// resources. Every backend speaks in whole lines: the record codec lives in
// the library package and a backend only ever reads or rewrites the full
// line list of one resource.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
)

// Resource names one persisted collection.
type Resource string

// The four resources of the persisted layout.
const (
	Books    Resource = "books.txt"
	Loans    Resource = "loans.txt"
	Users    Resource = "users.txt"
	Counters Resource = "meta.txt"
)

// Resources lists every resource in persistence order.
var Resources = []Resource{Books, Loans, Users, Counters}

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// Kinds lists the valid backend kinds.
var Kinds = []string{KindFile, KindSQLite, KindBadger}

// ErrNotFound is returned by ReadLines when a resource has never been written.
// It matches fs.ErrNotExist as well.
var ErrNotFound = fmt.Errorf("resource not found: %w", fs.ErrNotExist)

// Backend reads and rewrites whole resources.
type Backend interface {
	// ReadLines returns every line of r, in order, without line terminators.
	ReadLines(r Resource) ([]string, error)
	// WriteLines replaces the full content of r.
	WriteLines(r Resource, lines []string) error
	// Name identifies the backend in logs.
	Name() string
	Close() error
}

// Open returns the backend of the given kind rooted at path.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case KindFile, "":
		return NewFileBackend(path)
	case KindSQLite:
		return NewSQLiteBackend(path)
	case KindBadger:
		return NewBadgerBackend(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (must be one of %v)", kind, Kinds)
	}
}

// IsNotFound reports whether err means the resource does not exist yet.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
