package epub

import (
	"path"
	"strings"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Href            string
	MediaType       string
	DetectionMethod string // "properties", "meta", "filename"
}

// coverDetector returns the manifest item it recognises as the cover.
type coverDetector struct {
	method string
	find   func(p *Package) (ManifestItem, bool)
}

// coverDetectors are tried in order; the first hit wins.
var coverDetectors = []coverDetector{
	{method: "properties", find: func(p *Package) (ManifestItem, bool) {
		for _, id := range p.ManifestOrder {
			if item := p.Manifest[id]; item.HasProperty("cover-image") {
				return item, true
			}
		}
		return ManifestItem{}, false
	}},
	{method: "meta", find: func(p *Package) (ManifestItem, bool) {
		if p.Metadata.CoverID == "" {
			return ManifestItem{}, false
		}
		item, ok := p.Manifest[p.Metadata.CoverID]
		return item, ok
	}},
	{method: "filename", find: func(p *Package) (ManifestItem, bool) {
		for _, id := range p.ManifestOrder {
			item := p.Manifest[id]
			if IsRasterImage(item.MediaType) && strings.Contains(strings.ToLower(path.Base(item.Href)), "cover") {
				return item, true
			}
		}
		return ManifestItem{}, false
	}},
}

// DetectCover detects the cover image from the manifest. Returns nil if no
// cover image is found.
func (p *Package) DetectCover() *CoverInfo {
	for _, d := range coverDetectors {
		if item, ok := d.find(p); ok {
			return &CoverInfo{
				ManifestID:      item.ID,
				Href:            item.Href,
				MediaType:       item.MediaType,
				DetectionMethod: d.method,
			}
		}
	}
	return nil
}

// IsRasterImage checks if a media type is a raster image (SVG excluded).
func IsRasterImage(mediaType string) bool {
	if mediaType == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// IsXHTML reports whether a media type is an (X)HTML content document.
func IsXHTML(mediaType string) bool {
	return mediaType == "application/xhtml+xml" || mediaType == "text/html"
}
