// Manual check program for structure resolution, decoding and chapter
// segmentation.
//
// Usage:
//
//	go run ./cmd/test/structure_dump/main.go <epub-file> (<content-path> ...)
//
// This program prints:
// - the archive entries and the mimetype check
// - the package document, its metadata and the detected cover
// - the spine with the detected encoding of each document
// - the navigation tree and its source (nav or ncx)
// - the chapters found in the extracted text
// - the decoded text of any extra content path given
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/yuanying/epubinspect/internal/chapters"
	"github.com/yuanying/epubinspect/internal/epub"
	"github.com/yuanying/epubinspect/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test/structure_dump/main.go <epub-file> (<content-path> ...)")
		os.Exit(1)
	}

	epubPath := os.Args[1]
	contentPaths := os.Args[2:]
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fmt.Printf("Opening EPUB file: %s\n", epubPath)
	archive, err := epub.Open(epubPath)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	defer archive.Close()

	names := archive.Names()
	fmt.Printf("✓ EPUB opened successfully (%d entries)\n", len(names))
	for _, name := range names {
		fmt.Printf("  - %s\n", name)
	}
	if err := archive.ValidateMimetype(); err != nil {
		fmt.Printf("! mimetype: %v\n", err)
	}

	pkg, err := epub.NewResolver(logger).Resolve(archive)
	if err != nil {
		log.Fatalf("Failed to resolve structure: %v", err)
	}
	fmt.Printf("\n✓ Package document: %s (EPUB %s)\n", pkg.PackagePath, pkg.Version)

	m := pkg.Metadata
	fmt.Println("\nMetadata:")
	fmt.Printf("  Title:      %s\n", m.Title)
	fmt.Printf("  Author:     %s\n", m.Author())
	fmt.Printf("  Language:   %s\n", m.Language)
	fmt.Printf("  Identifier: %s\n", m.Identifier)
	fmt.Printf("  Publisher:  %s\n", m.Publisher)
	if cover := pkg.DetectCover(); cover != nil {
		fmt.Printf("  Cover:      %s (%s, %s)\n", cover.Href, cover.MediaType, cover.DetectionMethod)
	}

	src := pipeline.NewSource(epubPath, archive, pkg, nil, logger)
	docs, err := src.Documents()
	if err != nil {
		log.Fatalf("Failed to load spine documents: %v", err)
	}
	fmt.Printf("\nSpine (%d items, %d decoded):\n", len(pkg.Spine), len(docs))
	for i, d := range docs {
		fmt.Printf("  %3d. %-40s %s\n", i+1, d.Item.Href, d.Encoding)
	}

	fmt.Printf("\nNavigation (source: %s, %d entries)\n", pkg.NavSource, pkg.NavCount())
	printNav(pkg.Navigation)

	text, err := src.Text()
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}
	seg, err := chapters.New().Split(text)
	if err != nil {
		fmt.Printf("\nChapters: %v\n", err)
	} else {
		fmt.Printf("\nChapters (strategy: %s):\n", seg.Strategy)
		for _, s := range seg.Spans {
			fmt.Printf("  %3d. %s (%d bytes)\n", s.Index, s.Heading, len(s.Text))
		}
	}

	for _, p := range contentPaths {
		fmt.Printf("\nReading content file: %s\n", p)
		content, enc, err := archive.ReadText(p)
		if err != nil {
			log.Fatalf("Failed to read content file %s: %v", p, err)
		}
		fmt.Printf("✓ %s decoded as %s\n", p, enc)
		fmt.Printf("Text:\n%s\n", epub.ExtractText(content))
	}
}

func printNav(entries []epub.NavEntry) {
	for _, e := range entries {
		fmt.Printf("%s- %s -> %s\n", strings.Repeat("  ", e.Level), e.Title, e.Href)
		printNav(e.Children)
	}
}
