package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Book describes the source being archived.
type Book struct {
	Path       string
	Title      string
	Author     string
	Language   string
	Identifier string
}

// Result reports where a book was archived.
type Result struct {
	Destination string `json:"destination" yaml:"destination"`
	SHA256      string `json:"sha256" yaml:"sha256"`
	SizeBytes   int64  `json:"size_bytes" yaml:"size_bytes"`
	CatalogPath string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty"`
	CatalogID   int64  `json:"catalog_id,omitempty" yaml:"catalog_id,omitempty"`
}

// Library copies books into a Store and optionally records them in a Catalog.
type Library struct {
	Store   Store
	Catalog *Catalog
}

// Add copies the file at b.Path into the store under its base name.
func (l *Library) Add(ctx context.Context, b Book) (Result, error) {
	if l == nil || l.Store == nil {
		return Result{}, ErrNoDestination
	}

	f, err := os.Open(b.Path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", b.Path, err)
	}
	defer f.Close()

	h := sha256.New()
	counted := &countingReader{r: io.TeeReader(f, h)}
	dest, err := l.Store.Put(ctx, filepath.Base(b.Path), counted)
	if err != nil {
		return Result{}, err
	}
	// A store may stop reading early, e.g. when the object already exists.
	if _, err := io.Copy(io.Discard, counted); err != nil {
		return Result{}, fmt.Errorf("failed to hash %s: %w", b.Path, err)
	}

	res := Result{
		Destination: dest,
		SHA256:      hex.EncodeToString(h.Sum(nil)),
		SizeBytes:   counted.n,
	}
	if l.Catalog == nil {
		return res, nil
	}

	id, err := l.Catalog.Add(ctx, Entry{
		SHA256:      res.SHA256,
		Title:       b.Title,
		Author:      b.Author,
		Language:    b.Language,
		Identifier:  b.Identifier,
		Destination: dest,
		SizeBytes:   res.SizeBytes,
	})
	if err != nil {
		return res, err
	}
	res.CatalogPath = l.Catalog.Path()
	res.CatalogID = id
	return res, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
