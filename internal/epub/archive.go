package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/yuanying/epubinspect/internal/textenc"
)

var (
	ErrUnreadableArchive  = errors.New("epub: archive cannot be opened")
	ErrFileNotFound       = errors.New("epub: file not found in archive")
	ErrInvalidMimetype    = errors.New("epub: invalid mimetype: must be 'application/epub+zip'")
	ErrMimetypeCompressed = errors.New("epub: mimetype must not be compressed")
	ErrMimetypeNotFound   = errors.New("epub: mimetype file not found")
)

const epubMimetype = "application/epub+zip"

// Archive provides read-only access to the entries of an EPUB container.
// Every read opens its own entry reader over an io.ReaderAt, so an Archive
// may be shared by concurrent goroutines.
type Archive struct {
	closer io.Closer
	files  map[string]*zip.File
	order  []string

	// Decoder converts entry bytes to text in ReadText. Nil uses the default candidates.
	Decoder *textenc.Decoder
}

// Open opens the archive at path.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableArchive, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnreadableArchive, err)
	}
	a, err := OpenReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// OpenReader reads the archive directory from r. The caller keeps ownership of r.
func OpenReader(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableArchive, err)
	}

	a := &Archive{
		files: make(map[string]*zip.File, len(zr.File)),
	}

	// Build file map with normalized paths
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := normalizePath(f.Name)
		if _, dup := a.files[name]; dup {
			continue
		}
		a.files[name] = f
		a.order = append(a.order, name)
	}

	return a, nil
}

// Close releases the underlying file when the archive was opened by path.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Names returns entry names in archive order.
func (a *Archive) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Has reports whether the archive contains path.
func (a *Archive) Has(path string) bool {
	_, ok := a.files[normalizePath(path)]
	return ok
}

// Size returns the uncompressed size of an entry.
func (a *Archive) Size(path string) (int64, bool) {
	f, ok := a.files[normalizePath(path)]
	if !ok {
		return 0, false
	}
	return int64(f.UncompressedSize64), true
}

// ReadFile reads the contents of a file from the archive.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	path = normalizePath(path)
	f, ok := a.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// ReadText reads an entry and decodes it to text, returning the encoding used.
func (a *Archive) ReadText(path string) (string, string, error) {
	b, err := a.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	text, enc, err := a.Decoder.Decode(b)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return text, enc, nil
}

// Glob returns entry names, sorted, whose lower-cased extension is one of exts.
func (a *Archive) Glob(exts ...string) []string {
	var out []string
	for _, name := range a.order {
		lower := strings.ToLower(name)
		for _, ext := range exts {
			if strings.HasSuffix(lower, ext) {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// ValidateMimetype checks the mimetype entry the way readers expect it:
// present, stored uncompressed and equal to application/epub+zip.
func (a *Archive) ValidateMimetype() error {
	f, ok := a.files["mimetype"]
	if !ok {
		return ErrMimetypeNotFound
	}

	// Check that mimetype is not compressed
	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}

	content, err := a.ReadFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}
	if strings.TrimSpace(string(content)) != epubMimetype {
		return ErrInvalidMimetype
	}

	return nil
}
