package epub

import (
	"encoding/xml"
	"io"
	"path"
	"strings"
)

// normalizePath converts an archive entry name to the form used as map key:
// forward slashes, no leading "./" or "/".
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimPrefix(p, "./")
	return strings.TrimPrefix(p, "/")
}

// resolvePath resolves a relative href against a base directory
// baseDir: base directory (e.g., "OEBPS/text" for "OEBPS/text/chapter1.xhtml")
// href: relative path (e.g., "../images/photo.jpg")
// returns: resolved archive path (e.g., "OEBPS/images/photo.jpg")
func resolvePath(baseDir, href string) string {
	href = strings.ReplaceAll(href, `\`, "/")
	if strings.HasPrefix(href, "/") {
		return normalizePath(path.Clean(href))
	}
	cleaned := path.Clean(path.Join(baseDir, href))
	if cleaned == "." {
		return ""
	}
	return normalizePath(cleaned)
}

// dirOf returns the directory of an archive path, "" for root-level entries.
func dirOf(p string) string {
	d := path.Dir(normalizePath(p))
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (p, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	p = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return p, fragment
}

// StripFragment returns href without its fragment identifier.
func StripFragment(href string) string {
	p, _ := splitFragment(href)
	return p
}

// collapseSpace trims s and folds internal whitespace runs to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// decodeXML unmarshals already-decoded document text. The declared charset
// in the XML prolog is ignored since the text is UTF-8 at this point.
func decodeXML(text string, v any) error {
	d := xml.NewDecoder(strings.NewReader(text))
	d.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) {
		return r, nil
	}
	d.Entity = xml.HTMLEntity
	return d.Decode(v)
}
