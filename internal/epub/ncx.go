package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const ncxNamespace = "http://www.daisy.org/z3986/2005/ncx/"

type ncxDocument struct {
	XMLName  xml.Name `xml:"ncx"`
	DocTitle struct {
		Text string `xml:"text"`
	} `xml:"docTitle"`
	NavMap struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	ID        string `xml:"id,attr"`
	PlayOrder string `xml:"playOrder,attr"`
	Label     struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// parseNCX parses a legacy NCX index located at ncxPath. Content sources
// are resolved against the directory of the NCX file.
func parseNCX(text, ncxPath string) (*ncxDocument, []NavEntry, error) {
	var doc ncxDocument
	if err := decodeXML(text, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse NCX %s: %w", ncxPath, err)
	}

	dir := dirOf(ncxPath)
	return &doc, convertNavPoints(doc.NavMap.NavPoints, dir, 1), nil
}

func convertNavPoints(points []ncxNavPoint, dir string, level int) []NavEntry {
	entries := make([]NavEntry, 0, len(points))
	for _, np := range points {
		src := strings.TrimSpace(np.Content.Src)
		p, fragment := splitFragment(src)
		entry := NavEntry{
			ID:       np.ID,
			Title:    collapseSpace(np.Label.Text),
			Href:     src,
			Fragment: fragment,
			Level:    level,
		}
		if p != "" {
			entry.Path = resolvePath(dir, p)
		}
		if n, err := strconv.Atoi(strings.TrimSpace(np.PlayOrder)); err == nil {
			entry.PlayOrder = n
		}
		if len(np.Children) > 0 {
			entry.Children = convertNavPoints(np.Children, dir, level+1)
		}
		entries = append(entries, entry)
	}
	return entries
}
