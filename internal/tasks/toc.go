package tasks

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/yuanying/epubinspect/internal/epub"
	"github.com/yuanying/epubinspect/internal/pipeline"
)

var ErrNoNavigation = errors.New("tasks: book has no navigation entries")

// TOCEntry is one node of the generated table of contents.
type TOCEntry struct {
	Title    string     `json:"title" yaml:"title"`
	Href     string     `json:"href" yaml:"href"`
	Path     string     `json:"path" yaml:"path"`
	Level    int        `json:"level" yaml:"level"`
	Children []TOCEntry `json:"children,omitempty" yaml:"children,omitempty"`
}

// Navigation is the payload of generate_toc and the input of translation.
type Navigation struct {
	Source       string     `json:"source" yaml:"source"`
	Title        string     `json:"title" yaml:"title"`
	TotalEntries int        `json:"total_entries" yaml:"total_entries"`
	Entries      []TOCEntry `json:"entries" yaml:"entries"`
	HTMLPath     string     `json:"toc_html,omitempty" yaml:"toc_html,omitempty"`
}

// First returns the first top-level entry.
func (n *Navigation) First() (TOCEntry, bool) {
	if n == nil || len(n.Entries) == 0 {
		return TOCEntry{}, false
	}
	return n.Entries[0], true
}

func (r *runner) generateTOC(_ context.Context, src *pipeline.Source, _ any) (any, error) {
	pkg, err := src.RequirePackage()
	if err != nil {
		return nil, err
	}
	if len(pkg.Navigation) == 0 {
		return nil, fmt.Errorf("%w (source %s)", ErrNoNavigation, pkg.NavSource)
	}

	nav := &Navigation{
		Source:       string(pkg.NavSource),
		Title:        pkg.NavTitle,
		TotalEntries: pkg.NavCount(),
		Entries:      convertNavEntries(pkg.Navigation),
	}
	if nav.Title == "" {
		nav.Title = pkg.Metadata.Title
	}

	if r.opts.Output != nil {
		nav.HTMLPath, err = r.writeOutput("toc.html", []byte(RenderTOC(nav)))
		if err != nil {
			return nil, err
		}
	}
	return nav, nil
}

func convertNavEntries(entries []epub.NavEntry) []TOCEntry {
	out := make([]TOCEntry, 0, len(entries))
	for _, e := range entries {
		href := e.Path
		if e.Fragment != "" {
			href += "#" + e.Fragment
		}
		out = append(out, TOCEntry{
			Title:    e.Title,
			Href:     href,
			Path:     e.Path,
			Level:    e.Level,
			Children: convertNavEntries(e.Children),
		})
	}
	return out
}

// RenderTOC renders nav as a standalone HTML page with nested lists.
func RenderTOC(nav *Navigation) string {
	title := nav.Title
	if title == "" {
		title = "Table of Contents"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"/>")
	fmt.Fprintf(&b, "<title>%s</title></head>\n<body>\n", html.EscapeString(title))
	b.WriteString(`<div id="toc">`)
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(title))
	writeTOCEntries(&b, nav.Entries)
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

// writeTOCEntries recursively writes entries as nested <ul>/<li> with links.
func writeTOCEntries(b *strings.Builder, entries []TOCEntry) {
	b.WriteString("<ul>")
	for _, e := range entries {
		b.WriteString("<li>")
		fmt.Fprintf(b, `<a href="%s">%s</a>`, html.EscapeString(e.Href), html.EscapeString(e.Title))
		if len(e.Children) > 0 {
			writeTOCEntries(b, e.Children)
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
}
