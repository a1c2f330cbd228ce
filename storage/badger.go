package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "resource:"

// BadgerBackend keeps each resource as a single value keyed by its name.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens a Badger database in dir.
func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Every save is a durability point
	return openBadger(opts)
}

// NewInMemoryBadgerBackend returns a Badger backend that never touches disk.
func NewInMemoryBadgerBackend() (*BadgerBackend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerBackend, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func badgerKey(r Resource) []byte { return []byte(badgerKeyPrefix + string(r)) }

func (b *BadgerBackend) Name() string { return KindBadger }

func (b *BadgerBackend) Close() error { return b.db.Close() }

// ReadLines loads the value of r and splits it into lines.
func (b *BadgerBackend) ReadLines(r Resource) ([]string, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(r))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r, err)
	}
	if len(value) == 0 {
		return []string{}, nil
	}
	return strings.Split(strings.TrimSuffix(string(value), "\n"), "\n"), nil
}

// WriteLines stores lines as the new value of r.
func (b *BadgerBackend) WriteLines(r Resource, lines []string) error {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(r), []byte(sb.String()))
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", r, err)
	}
	return nil
}
