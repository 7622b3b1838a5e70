// Package tasks holds the bodies of the pipeline's task registry.
package tasks

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/yuanying/epubinspect/internal/chapters"
	"github.com/yuanying/epubinspect/internal/library"
	"github.com/yuanying/epubinspect/internal/pipeline"
	"github.com/yuanying/epubinspect/internal/translate"
)

var ErrNoOutput = errors.New("tasks: no output directory configured")

// Options configures the task bodies of one run.
type Options struct {
	// SearchTerm drives keyword search and the term frequency of text analysis.
	SearchTerm string

	// Output receives written artifacts. OutputDir is its location on disk,
	// used only to report paths; it may be empty.
	Output    billy.Filesystem
	OutputDir string

	Images ImageOptions

	Library *library.Library

	Translator    translate.Translator
	TargetLang    string
	ExcerptLength int

	// Segmenter defaults to chapters.New().
	Segmenter *chapters.Segmenter
}

// NewRegistry returns the complete task registry bound to opts.
func NewRegistry(opts Options) pipeline.Registry {
	if opts.Segmenter == nil {
		opts.Segmenter = chapters.New()
	}
	if opts.Translator == nil {
		opts.Translator = translate.Unconfigured{}
	}
	if opts.TargetLang == "" {
		opts.TargetLang = "en"
	}
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = translate.DefaultExcerptRunes
	}
	r := &runner{opts: opts}

	return pipeline.Registry{
		{ID: pipeline.TaskMetadata, NeedsStructure: true, Run: r.metadata},
		{ID: pipeline.TaskTextAnalysis, NeedsStructure: true, Run: r.analyzeText},
		{ID: pipeline.TaskImages, NeedsStructure: true, Run: r.extractImages},
		{ID: pipeline.TaskKeywords, NeedsStructure: true, Run: r.searchKeywords},
		{ID: pipeline.TaskFormatting, NeedsStructure: true, Run: r.formatText},
		{ID: pipeline.TaskNavigation, NeedsStructure: true, Run: r.generateTOC},
		{ID: pipeline.TaskChapters, NeedsStructure: true, Run: r.splitChapters},
		{ID: pipeline.TaskStyles, NeedsStructure: true, Run: r.processStyles},
		{ID: pipeline.TaskLibrary, Run: r.addToLibrary},
		{ID: pipeline.TaskTranslation, NeedsStructure: true, DependsOn: pipeline.TaskNavigation, Run: r.translateFirstChapter},
	}
}

type runner struct {
	opts Options
}

// writeOutput stores data under name in the output filesystem and returns
// the reported location.
func (r *runner) writeOutput(name string, data []byte) (string, error) {
	fs := r.opts.Output
	if fs == nil {
		return "", ErrNoOutput
	}
	if dir := path.Dir(name); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(fs, name, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return r.location(name), nil
}

func (r *runner) location(name string) string {
	if r.opts.OutputDir == "" {
		return name
	}
	return filepath.Join(r.opts.OutputDir, filepath.FromSlash(name))
}
