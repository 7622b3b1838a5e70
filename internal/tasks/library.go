package tasks

import (
	"context"

	"github.com/yuanying/epubinspect/internal/library"
	"github.com/yuanying/epubinspect/internal/pipeline"
)

// addToLibrary copies the source archive into the library. It only needs
// the file, so it runs even when the structure did not resolve.
func (r *runner) addToLibrary(ctx context.Context, src *pipeline.Source, _ any) (any, error) {
	book := library.Book{Path: src.Path}
	if pkg := src.Package; pkg != nil {
		book.Title = pkg.Metadata.Title
		book.Author = pkg.Metadata.Author()
		book.Language = pkg.Metadata.Language
		book.Identifier = pkg.Metadata.Identifier
	}
	res, err := r.opts.Library.Add(ctx, book)
	if err != nil {
		return nil, err
	}
	src.Logger.Info("added to library", "destination", res.Destination, "sha256", res.SHA256)
	return res, nil
}
