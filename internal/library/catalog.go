package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS books (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    sha256      TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL DEFAULT '',
    author      TEXT NOT NULL DEFAULT '',
    language    TEXT NOT NULL DEFAULT '',
    identifier  TEXT NOT NULL DEFAULT '',
    destination TEXT NOT NULL,
    size_bytes  INTEGER NOT NULL DEFAULT 0,
    added_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
`

// Entry is one catalogued book.
type Entry struct {
	ID          int64
	SHA256      string
	Title       string
	Author      string
	Language    string
	Identifier  string
	Destination string
	SizeBytes   int64
	AddedAt     time.Time
}

// Catalog is a SQLite index of archived books.
type Catalog struct {
	db   *sql.DB
	path string
}

// openDB opens a SQLite database at the given path
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return sqlDB, nil
}

// OpenCatalog opens or creates the catalog at dbPath. ":memory:" is accepted.
func OpenCatalog(dbPath string) (*Catalog, error) {
	sqlDB, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &Catalog{db: sqlDB, path: dbPath}, nil
}

// Path returns the database path the catalog was opened with.
func (c *Catalog) Path() string { return c.path }

func (c *Catalog) Close() error { return c.db.Close() }

// Add records e, keyed by its checksum. Adding the same book again updates
// its metadata and destination and keeps its id.
func (c *Catalog) Add(ctx context.Context, e Entry) (int64, error) {
	if e.SHA256 == "" {
		return 0, errors.New("library: catalog entry without checksum")
	}
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now()
	}
	var id int64
	err := c.db.QueryRowContext(ctx, `
INSERT INTO books (sha256, title, author, language, identifier, destination, size_bytes, added_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(sha256) DO UPDATE SET
    title = excluded.title,
    author = excluded.author,
    language = excluded.language,
    identifier = excluded.identifier,
    destination = excluded.destination,
    size_bytes = excluded.size_bytes
RETURNING id`,
		e.SHA256, e.Title, e.Author, e.Language, e.Identifier, e.Destination, e.SizeBytes,
		e.AddedAt.UTC().Format(time.RFC3339),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add %s to catalog: %w", e.SHA256, err)
	}
	return id, nil
}

// Lookup returns the entry with the given checksum.
func (c *Catalog) Lookup(ctx context.Context, sha string) (Entry, bool, error) {
	var e Entry
	var added string
	err := c.db.QueryRowContext(ctx, `
SELECT id, sha256, title, author, language, identifier, destination, size_bytes, added_at
FROM books WHERE sha256 = ?`, sha).Scan(
		&e.ID, &e.SHA256, &e.Title, &e.Author, &e.Language, &e.Identifier, &e.Destination, &e.SizeBytes, &added)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to query catalog: %w", err)
	}
	e.AddedAt, _ = time.Parse(time.RFC3339, added)
	return e, true, nil
}

// Count returns the number of catalogued books.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	return n, nil
}
