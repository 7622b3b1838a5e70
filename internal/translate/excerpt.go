package translate

import (
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/yuanying/epubinspect/internal/epub"
)

// DefaultExcerptRunes is the excerpt length sent for translation.
const DefaultExcerptRunes = 1000

// Excerpt returns the first limit runes of the main text of an XHTML
// document. Readability picks the main content; documents it cannot handle
// fall back to plain markup flattening.
func Excerpt(docPath, markup string, limit int) string {
	text := mainText(docPath, markup)
	if strings.TrimSpace(text) == "" {
		text = epub.ExtractText(markup)
	}
	return truncateRunes(strings.TrimSpace(text), limit)
}

func mainText(docPath, markup string) string {
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(markup), &url.URL{Scheme: "file", Path: "/" + docPath})
	if err != nil {
		return ""
	}
	return article.TextContent
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
