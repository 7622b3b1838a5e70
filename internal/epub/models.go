package epub

// NavSource identifies which navigation resource populated Package.Navigation.
type NavSource string

const (
	NavSourceNone NavSource = "none"
	NavSourceNAV  NavSource = "nav"
	NavSourceNCX  NavSource = "ncx"
)

// Package is the resolved structure of an EPUB. It is built once by a
// Resolver and must not be modified afterwards.
type Package struct {
	PackagePath   string
	BaseDir       string // directory of PackagePath, "" at the archive root
	Version       string
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // manifest ids in document order
	Spine         []SpineItem
	TocID         string

	Navigation []NavEntry
	NavSource  NavSource
	NavPath    string // archive path of the navigation document, if any
	NavTitle   string
}

// Metadata represents the metadata section of the package document.
// Absent fields are empty strings.
type Metadata struct {
	Title       string
	Creators    []Creator
	Language    string
	Identifier  string
	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	CoverID     string // EPUB 2.0 cover image manifest item ID (from meta name="cover")
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name string
	Role string // e.g., "aut" for author, "edt" for editor
}

// ManifestItem represents an item in the manifest. Href is already joined
// with the package base directory.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// HasProperty reports whether the item declares prop.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}

// NavEntry is one node of the navigation tree.
type NavEntry struct {
	ID        string
	PlayOrder int
	Title     string
	Href      string // as written in the navigation document
	Path      string // fragment-free archive path
	Fragment  string // fragment identifier (without #)
	Level     int    // 1 for top-level entries
	Children  []NavEntry
}

// Author returns the first creator with an author role, or the first creator.
func (m Metadata) Author() string {
	for _, c := range m.Creators {
		if c.Role == "aut" {
			return c.Name
		}
	}
	if len(m.Creators) > 0 {
		return m.Creators[0].Name
	}
	return ""
}

// Item looks up a manifest item by id.
func (p *Package) Item(id string) (ManifestItem, bool) {
	item, ok := p.Manifest[id]
	return item, ok
}

// SpineItems returns the manifest items of the spine in reading order.
func (p *Package) SpineItems() []ManifestItem {
	items := make([]ManifestItem, 0, len(p.Spine))
	for _, s := range p.Spine {
		if item, ok := p.Manifest[s.IDRef]; ok {
			items = append(items, item)
		}
	}
	return items
}

// ItemsByMediaType returns manifest items, in manifest order, whose media
// type satisfies match.
func (p *Package) ItemsByMediaType(match func(mediaType string) bool) []ManifestItem {
	var items []ManifestItem
	for _, id := range p.ManifestOrder {
		item := p.Manifest[id]
		if match(item.MediaType) {
			items = append(items, item)
		}
	}
	return items
}

// FirstNavEntry returns the first top-level navigation entry.
func (p *Package) FirstNavEntry() (NavEntry, bool) {
	if len(p.Navigation) == 0 {
		return NavEntry{}, false
	}
	return p.Navigation[0], true
}

// NavCount returns the number of entries in the navigation tree at all levels.
func (p *Package) NavCount() int {
	return countEntries(p.Navigation)
}

func countEntries(entries []NavEntry) int {
	n := len(entries)
	for _, e := range entries {
		n += countEntries(e.Children)
	}
	return n
}
