package tasks

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yuanying/epubinspect/internal/chapters"
	"github.com/yuanying/epubinspect/internal/epub"
	"github.com/yuanying/epubinspect/internal/pipeline"
)

const chaptersArchive = "chapters.zip"

// ChapterSplit is the payload of split_chapters.
type ChapterSplit struct {
	Strategy      string         `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	TotalChapters int            `json:"total_chapters" yaml:"total_chapters"`
	OutputZip     string         `json:"output_zip,omitempty" yaml:"output_zip,omitempty"`
	Chapters      []ChapterEntry `json:"chapters" yaml:"chapters"`
}

type ChapterEntry struct {
	Index   int    `json:"index" yaml:"index"`
	Heading string `json:"heading" yaml:"heading"`
	File    string `json:"file" yaml:"file"`
	Runes   int    `json:"chars" yaml:"chars"`
}

func (r *runner) splitChapters(_ context.Context, src *pipeline.Source, _ any) (any, error) {
	markup, err := src.Markup()
	if err != nil {
		return nil, err
	}

	// Markup keeps h1-h6 elements; keyword headings are only line-anchored
	// once block elements have been flattened to lines.
	seg, err := r.opts.Segmenter.Split(markup)
	if errors.Is(err, chapters.ErrNoChapterPattern) {
		text, terr := src.Text()
		if terr != nil {
			return nil, terr
		}
		seg, err = r.opts.Segmenter.Split(text)
	}
	if errors.Is(err, chapters.ErrNoChapterPattern) {
		src.Logger.Info("no chapter headings found")
		return ChapterSplit{Chapters: []ChapterEntry{}}, nil
	}
	if err != nil {
		return nil, err
	}

	out := ChapterSplit{
		Strategy:      seg.Strategy,
		TotalChapters: len(seg.Spans),
		Chapters:      make([]ChapterEntry, 0, len(seg.Spans)),
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, span := range seg.Spans {
		name := fmt.Sprintf("chapter_%03d.txt", span.Index)
		text := epub.ExtractText(span.Text)

		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := fw.Write([]byte(text)); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
		out.Chapters = append(out.Chapters, ChapterEntry{
			Index:   span.Index,
			Heading: epub.ExtractText(span.Heading),
			File:    name,
			Runes:   len([]rune(text)),
		})
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize %s: %w", chaptersArchive, err)
	}

	out.OutputZip, err = r.writeOutput(chaptersArchive, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return out, nil
}
