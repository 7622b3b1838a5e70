package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/yuanying/epubinspect/internal/epub"
)

var ErrStructureUnavailable = errors.New("pipeline: document structure unavailable")

// Document is a decoded spine content document.
type Document struct {
	Item     epub.ManifestItem
	Markup   string
	Encoding string
}

// Source is the read-only input shared by all tasks of a run. Package is
// nil when structure resolution failed; StructureErr then holds the cause.
type Source struct {
	Path         string
	Archive      *epub.Archive
	Package      *epub.Package
	StructureErr error
	Logger       *slog.Logger

	documents func() ([]Document, error)
	text      func() (string, error)
	markup    func() (string, error)
}

// NewSource wraps a resolved (or failed) archive for a pipeline run.
func NewSource(path string, archive *epub.Archive, pkg *epub.Package, structureErr error, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Source{
		Path:         path,
		Archive:      archive,
		Package:      pkg,
		StructureErr: structureErr,
		Logger:       logger,
	}
	s.documents = sync.OnceValues(s.loadDocuments)
	s.text = sync.OnceValues(func() (string, error) {
		docs, err := s.documents()
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(docs))
		for _, d := range docs {
			if t := epub.ExtractText(d.Markup); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n\n"), nil
	})
	s.markup = sync.OnceValues(func() (string, error) {
		docs, err := s.documents()
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(docs))
		for _, d := range docs {
			parts = append(parts, strings.TrimSpace(epub.BodyMarkup(d.Markup)))
		}
		return strings.Join(parts, "\n"), nil
	})
	return s
}

// RequirePackage returns the resolved package or the structure error.
func (s *Source) RequirePackage() (*epub.Package, error) {
	if s.Package != nil {
		return s.Package, nil
	}
	if s.StructureErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrStructureUnavailable, s.StructureErr)
	}
	return nil, ErrStructureUnavailable
}

// Documents returns the spine XHTML documents in reading order, decoded.
// Entries that cannot be read are logged and left out. Computed once.
func (s *Source) Documents() ([]Document, error) {
	return s.documents()
}

// Text returns the plain text of the spine, documents separated by a blank line.
func (s *Source) Text() (string, error) {
	return s.text()
}

// Markup returns the concatenated body markup of the spine documents.
func (s *Source) Markup() (string, error) {
	return s.markup()
}

func (s *Source) loadDocuments() ([]Document, error) {
	pkg, err := s.RequirePackage()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var docs []Document
	for _, item := range pkg.SpineItems() {
		if !epub.IsXHTML(item.MediaType) || seen[item.Href] {
			continue
		}
		seen[item.Href] = true
		markup, enc, err := s.Archive.ReadText(item.Href)
		if err != nil {
			s.Logger.Warn("failed to read spine document, skipping", "path", item.Href, "err", err)
			continue
		}
		docs = append(docs, Document{Item: item, Markup: markup, Encoding: enc})
	}
	return docs, nil
}
