package tasks

import (
	"context"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yuanying/epubinspect/internal/chapters"
	"github.com/yuanying/epubinspect/internal/epub"
	"github.com/yuanying/epubinspect/internal/pipeline"
)

// maxFormattedHeaders caps the rendered headers kept in the payload.
const maxFormattedHeaders = 10

// Formatting is the payload of format_text.
type Formatting struct {
	FormattedHeadersCount int               `json:"formatted_headers_count" yaml:"formatted_headers_count"`
	Headers               []FormattedHeader `json:"headers" yaml:"headers"`
}

// FormattedHeader is one header with its bold and upper-case renderings.
type FormattedHeader struct {
	Text      string `json:"text" yaml:"text"`
	Bold      string `json:"bold" yaml:"bold"`
	Uppercase string `json:"uppercase" yaml:"uppercase"`
}

// headerSet collects unique headers in insertion order.
type headerSet struct {
	seen  map[string]bool
	order []string
}

func (h *headerSet) add(text string) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || h.seen[text] {
		return
	}
	h.seen[text] = true
	h.order = append(h.order, text)
}

func (r *runner) formatText(_ context.Context, src *pipeline.Source, _ any) (any, error) {
	pkg, err := src.RequirePackage()
	if err != nil {
		return nil, err
	}

	headers := &headerSet{seen: make(map[string]bool)}
	walkNav(pkg.Navigation, func(e epub.NavEntry) {
		headers.add(e.Title)
	})

	for _, item := range pkg.ItemsByMediaType(epub.IsXHTML) {
		text, _, err := src.Archive.ReadText(item.Href)
		if err != nil {
			src.Logger.Warn("failed to read content document, skipping", "path", item.Href, "err", err)
			continue
		}
		content, err := epub.LoadContent(item.Href, text)
		if err != nil {
			src.Logger.Warn("failed to parse content document, skipping", "path", item.Href, "err", err)
			continue
		}
		for _, h := range documentHeaders(content.Document) {
			headers.add(h)
		}
	}

	upper := cases.Upper(language.Make(pkg.Metadata.Language))
	out := Formatting{
		FormattedHeadersCount: len(headers.order),
		Headers:               []FormattedHeader{},
	}
	for _, h := range headers.order {
		if len(out.Headers) == maxFormattedHeaders {
			break
		}
		out.Headers = append(out.Headers, FormattedHeader{
			Text:      h,
			Bold:      `<span style="font-weight: bold;">` + html.EscapeString(h) + `</span>`,
			Uppercase: upper.String(h),
		})
	}
	return out, nil
}

// documentHeaders returns heading elements and paragraph-like elements
// whose own text reads as a chapter heading, in document order.
func documentHeaders(doc *goquery.Document) []string {
	var out []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, div").Each(func(_ int, s *goquery.Selection) {
		var text string
		switch goquery.NodeName(s) {
		case "p", "div":
			text = ownText(s)
		default:
			text = s.Text()
		}
		text = strings.Join(strings.Fields(text), " ")
		if text != "" && chapters.IsHeading(text) {
			out = append(out, text)
		}
	})
	return out
}

// ownText returns the text of the direct text children of s.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}

func walkNav(entries []epub.NavEntry, fn func(epub.NavEntry)) {
	for _, e := range entries {
		fn(e)
		walkNav(e.Children, fn)
	}
}
