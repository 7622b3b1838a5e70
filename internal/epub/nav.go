package epub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var errNoTOCNav = errors.New("no nav element found")

// parseNav parses an EPUB 3 navigation document located at navPath.
// The nav marked epub:type="toc" is preferred; otherwise the first nav is used.
func parseNav(text, navPath string) (string, []NavEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse nav document %s: %w", navPath, err)
	}

	nav := findTOCNav(doc)
	if nav == nil {
		return "", nil, fmt.Errorf("%s: %w", navPath, errNoTOCNav)
	}

	title := collapseSpace(nav.Find("h1, h2, h3, h4, h5, h6").First().Text())
	list := nav.Find("ol, ul").First()
	if list.Length() == 0 {
		return title, nil, nil
	}
	return title, parseNavList(list, dirOf(navPath), 1), nil
}

func findTOCNav(doc *goquery.Document) *goquery.Selection {
	navs := doc.Find("nav")
	if navs.Length() == 0 {
		return nil
	}

	var toc *goquery.Selection
	navs.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, name := range []string{"epub:type", "type", "role"} {
			v, ok := s.Attr(name)
			if !ok {
				continue
			}
			for _, f := range strings.Fields(v) {
				if f == "toc" || f == "doc-toc" {
					toc = s
					return false
				}
			}
		}
		return true
	})
	if toc != nil {
		return toc
	}
	return navs.First()
}

// parseNavList converts an ol/ul into entries. Nested lists inside an li
// become children one level deeper.
func parseNavList(list *goquery.Selection, dir string, level int) []NavEntry {
	var entries []NavEntry
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		label := li.ChildrenFiltered("a, span").First()
		entry := NavEntry{
			Title: collapseSpace(label.Text()),
			Level: level,
		}
		if href, ok := label.Attr("href"); ok && goquery.NodeName(label) == "a" {
			href = strings.TrimSpace(href)
			p, fragment := splitFragment(href)
			entry.Href = href
			entry.Fragment = fragment
			if p != "" {
				entry.Path = resolvePath(dir, p)
			}
		}
		if sub := li.ChildrenFiltered("ol, ul").First(); sub.Length() > 0 {
			entry.Children = parseNavList(sub, dir, level+1)
		}
		if entry.Title == "" && entry.Href == "" && len(entry.Children) == 0 {
			return
		}
		entries = append(entries, entry)
	})
	return entries
}
