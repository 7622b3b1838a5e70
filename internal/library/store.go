// Package library archives source books into a library location and keeps
// a catalog of what was added.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	ErrNoDestination  = errors.New("library: no library destination configured")
	ErrInvalidGCSPath = errors.New("library: invalid gs:// destination")
)

// Store receives archived books.
type Store interface {
	// Location describes the store root, e.g. a directory or gs:// URL.
	Location() string
	// Put writes r under name and returns where it was stored.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// FSStore stores books on a billy filesystem.
type FSStore struct {
	FS   billy.Filesystem
	Root string
}

// NewDirStore returns a store backed by the OS directory dir.
func NewDirStore(dir string) *FSStore {
	return &FSStore{FS: osfs.New(dir), Root: dir}
}

func (s *FSStore) Location() string { return s.Root }

func (s *FSStore) Put(_ context.Context, name string, r io.Reader) (string, error) {
	if dir := path.Dir(name); dir != "." {
		if err := s.FS.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create library directory: %w", err)
		}
	}
	f, err := s.FS.Create(name)
	if err != nil {
		return "", fmt.Errorf("failed to create %s in library: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to copy %s into library: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s in library: %w", name, err)
	}
	return s.FS.Join(s.Root, name), nil
}

// GCSStore stores books in a Cloud Storage bucket under a prefix.
type GCSStore struct {
	client *storage.Client
	Bucket string
	Prefix string
}

// NewGCSStore creates a client for a gs://bucket/prefix destination.
func NewGCSStore(ctx context.Context, dest, credentialsFile string) (*GCSStore, error) {
	bucket, prefix, err := ParseGCSPath(dest)
	if err != nil {
		return nil, err
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, Bucket: bucket, Prefix: prefix}, nil
}

func (s *GCSStore) Location() string {
	return "gs://" + path.Join(s.Bucket, s.Prefix)
}

// Put uploads r unless an object of the same name already exists, in which
// case the existing object is kept.
func (s *GCSStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	object := path.Join(s.Prefix, name)
	uri := "gs://" + s.Bucket + "/" + object

	w := s.client.Bucket(s.Bucket).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/epub+zip"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			return uri, nil
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return uri, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return uri, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}

// IsGCSPath reports whether dest is a gs:// URL.
func IsGCSPath(dest string) bool {
	return strings.HasPrefix(dest, "gs://")
}

// ParseGCSPath splits gs://bucket/prefix.
func ParseGCSPath(dest string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(dest, "gs://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidGCSPath, dest)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q has no bucket", ErrInvalidGCSPath, dest)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}
