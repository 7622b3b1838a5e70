package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yuanying/epubinspect/internal/lang"
	"github.com/yuanying/epubinspect/internal/pipeline"
	"github.com/yuanying/epubinspect/internal/translate"
)

var ErrNoFirstChapter = errors.New("tasks: navigation has no first chapter")

// Translation is the payload of translate_first_chapter.
type Translation struct {
	SourcePath  string `json:"source_path" yaml:"source_path"`
	SourceLang  string `json:"source_language" yaml:"source_language"`
	TargetLang  string `json:"target_language" yaml:"target_language"`
	Backend     string `json:"backend" yaml:"backend"`
	Excerpt     string `json:"excerpt" yaml:"excerpt"`
	Translation string `json:"translation" yaml:"translation"`
}

// translateFirstChapter translates the opening of the first navigation
// entry. upstream is the *Navigation produced by generate_toc.
func (r *runner) translateFirstChapter(ctx context.Context, src *pipeline.Source, upstream any) (any, error) {
	nav, ok := upstream.(*Navigation)
	if !ok {
		return nil, fmt.Errorf("tasks: unexpected navigation value %T", upstream)
	}
	pkg, err := src.RequirePackage()
	if err != nil {
		return nil, err
	}
	first, ok := nav.First()
	if !ok || first.Path == "" {
		return nil, ErrNoFirstChapter
	}

	markup, _, err := src.Archive.ReadText(first.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read first chapter: %w", err)
	}
	excerpt := translate.Excerpt(first.Path, markup, r.opts.ExcerptLength)
	if strings.TrimSpace(excerpt) == "" {
		return nil, fmt.Errorf("%s: %w", first.Path, translate.ErrEmptyText)
	}

	from, ok := lang.Detect(excerpt)
	if !ok {
		from = pkg.Metadata.Language
	}

	translated, err := r.opts.Translator.Translate(ctx, excerpt, from, r.opts.TargetLang)
	if err != nil {
		return nil, err
	}
	return Translation{
		SourcePath:  first.Path,
		SourceLang:  from,
		TargetLang:  r.opts.TargetLang,
		Backend:     r.opts.Translator.Name(),
		Excerpt:     excerpt,
		Translation: translated,
	}, nil
}
