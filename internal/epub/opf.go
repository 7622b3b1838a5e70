package epub

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const opfNamespace = "http://www.idpf.org/2007/opf"

// opfPackage represents the package document. Tags carry local names only
// so that prefixed, default and missing namespaces all decode the same way.
type opfPackage struct {
	XMLName  xml.Name     `xml:"package"`
	Version  string       `xml:"version,attr"`
	UniqueID string       `xml:"unique-identifier,attr"`
	Metadata opfMetadata  `xml:"metadata"`
	Manifest *opfManifest `xml:"manifest"`
	Spine    *opfSpine    `xml:"spine"`
}

// opfMetadata represents the metadata section
type opfMetadata struct {
	Title       []string        `xml:"title"`
	Creator     []opfCreator    `xml:"creator"`
	Language    []string        `xml:"language"`
	Identifier  []opfIdentifier `xml:"identifier"`
	Publisher   []string        `xml:"publisher"`
	Date        []string        `xml:"date"`
	Description []string        `xml:"description"`
	Subject     []string        `xml:"subject"`
	Rights      []string        `xml:"rights"`
	Meta        []opfMeta       `xml:"meta"`
}

type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"role,attr"`
	ID   string `xml:"id,attr"`
}

type opfIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents a meta element (EPUB 2.0 and 3.0)
type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"` // EPUB 2.0: attribute value
	Value    string `xml:",chardata"`    // EPUB 3.0: element text content
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// parsePackageDocument decodes the package document text and checks that
// the required manifest and spine sections exist.
func parsePackageDocument(text string) (*opfPackage, error) {
	var pkg opfPackage
	if err := decodeXML(text, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPackageDocument, err)
	}
	if pkg.Manifest == nil {
		return nil, fmt.Errorf("%w: manifest element not found", ErrMalformedPackageDocument)
	}
	if pkg.Spine == nil {
		return nil, fmt.Errorf("%w: spine element not found", ErrMalformedPackageDocument)
	}
	return &pkg, nil
}

// parseMetadata parses the metadata section
func parseMetadata(meta *opfMetadata, uniqueID string) Metadata {
	md := Metadata{
		Title:       firstTrimmed(meta.Title),
		Language:    firstTrimmed(meta.Language),
		Publisher:   firstTrimmed(meta.Publisher),
		Date:        firstTrimmed(meta.Date),
		Description: firstTrimmed(meta.Description),
		Rights:      firstTrimmed(meta.Rights),
		Subjects:    []string{},
		Creators:    []Creator{},
	}

	// Identifier marked as unique-identifier wins over the first one
	for _, id := range meta.Identifier {
		if id.ID != "" && id.ID == uniqueID {
			md.Identifier = strings.TrimSpace(id.Value)
			break
		}
	}
	if md.Identifier == "" && len(meta.Identifier) > 0 {
		md.Identifier = strings.TrimSpace(meta.Identifier[0].Value)
	}

	for _, s := range meta.Subject {
		if s = strings.TrimSpace(s); s != "" {
			md.Subjects = append(md.Subjects, s)
		}
	}

	refinedRoles := make(map[string]string)
	for _, m := range meta.Meta {
		if m.Property == "role" && strings.HasPrefix(m.Refines, "#") {
			role := m.Value
			if role == "" {
				role = m.Content
			}
			refinedRoles[strings.TrimPrefix(m.Refines, "#")] = strings.TrimSpace(role)
		}
		if m.Name == "cover" && m.Content != "" && md.CoverID == "" {
			md.CoverID = m.Content
		}
	}

	for _, c := range meta.Creator {
		role := c.Role
		if r, ok := refinedRoles[c.ID]; ok && c.ID != "" {
			role = r
		}
		md.Creators = append(md.Creators, Creator{
			Name: strings.TrimSpace(c.Name),
			Role: role,
		})
	}

	return md
}

func firstTrimmed(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
