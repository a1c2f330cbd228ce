package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	dialectSQLite  = "sqlite3"
	tableResources = "resources"
	tableRecords   = "records"

	// insertBatchSize keeps single INSERT statements small.
	insertBatchSize = 500
)

// SQLiteBackend stores the record lines of each resource as ordered rows.
type SQLiteBackend struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

// NewSQLiteBackend opens (or creates) the SQLite database at dbPath and
// applies schema migrations.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db, dialect: goqu.Dialect(dialectSQLite)}, nil
}

func (b *SQLiteBackend) Name() string { return KindSQLite }

// Close closes the database.
func (b *SQLiteBackend) Close() error { return b.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS resources (
            name TEXT PRIMARY KEY
        );`,
		`CREATE TABLE IF NOT EXISTS records (
            resource TEXT NOT NULL REFERENCES resources(name),
            seq INTEGER NOT NULL,
            line TEXT NOT NULL,
            PRIMARY KEY (resource, seq)
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Backend
// ---------------------------------------------------------------------------

// ReadLines returns the rows of r ordered by position.
func (b *SQLiteBackend) ReadLines(r Resource) ([]string, error) {
	q, args, err := b.dialect.From(tableResources).
		Select(goqu.COUNT("*")).
		Where(goqu.C("name").Eq(string(r))).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build exists query: %w", err)
	}
	var n int
	if err := b.db.Get(&n, q, args...); err != nil {
		return nil, fmt.Errorf("check %s: %w", r, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	q, args, err = b.dialect.From(tableRecords).
		Select("line").
		Where(goqu.C("resource").Eq(string(r))).
		Order(goqu.C("seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}
	var lines []string
	if err := b.db.Select(&lines, q, args...); err != nil {
		return nil, fmt.Errorf("read %s: %w", r, err)
	}
	return lines, nil
}

// WriteLines replaces all rows of r in one transaction.
func (b *SQLiteBackend) WriteLines(r Resource, lines []string) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q, args, err := b.dialect.Insert(tableResources).
		Rows(goqu.Record{"name": string(r)}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build resource insert: %w", err)
	}
	if _, err := tx.Exec(q, args...); err != nil {
		return fmt.Errorf("register %s: %w", r, err)
	}

	q, args, err = b.dialect.Delete(tableRecords).
		Where(goqu.C("resource").Eq(string(r))).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.Exec(q, args...); err != nil {
		return fmt.Errorf("clear %s: %w", r, err)
	}

	for start := 0; start < len(lines); start += insertBatchSize {
		end := min(start+insertBatchSize, len(lines))
		rows := make([]interface{}, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, goqu.Record{"resource": string(r), "seq": i, "line": lines[i]})
		}
		q, args, err := b.dialect.Insert(tableRecords).Rows(rows...).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("write %s: %w", r, err)
		}
	}

	return tx.Commit()
}
