package epub

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Content represents a parsed XHTML content file
type Content struct {
	Path       string            // Archive path
	Document   *goquery.Document // Parsed HTML document
	StyleLinks []string          // Referenced stylesheet paths
	ImageRefs  []string          // Referenced image paths
}

// LoadContent parses decoded XHTML text. path is the archive path of the
// document and is used to resolve relative references.
func LoadContent(path, text string) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML %s: %w", path, err)
	}

	c := &Content{
		Path:       path,
		Document:   doc,
		StyleLinks: []string{},
		ImageRefs:  []string{},
	}

	baseDir := dirOf(path)

	doc.Find("link[rel='stylesheet']").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			c.StyleLinks = append(c.StyleLinks, resolvePath(baseDir, href))
		}
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			c.ImageRefs = append(c.ImageRefs, resolvePath(baseDir, src))
		}
	})

	return c, nil
}

// Text returns the whitespace-collapsed text of the document body.
func (c *Content) Text() string {
	return collapseSpace(c.Document.Find("body").Text())
}
