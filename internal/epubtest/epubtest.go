// Package epubtest builds EPUB fixtures for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

const ContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const PackageOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Test Book</dc:title>
    <dc:creator opf:role="aut">Jane Doe</dc:creator>
    <dc:language>ru</dc:language>
    <dc:identifier id="bookid">urn:uuid:1234</dc:identifier>
    <dc:publisher>Test Press</dc:publisher>
    <dc:date>2020-01-01</dc:date>
    <dc:description>A book for tests.</dc:description>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch3" href="text/ch3.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="styles/main.css" media-type="text/css"/>
    <item id="cover-img" href="images/cover.png" media-type="image/png"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    <itemref idref="ch3"/>
  </spine>
</package>`

const NCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <docTitle><text>Test Book</text></docTitle>
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Глава 1</text></navLabel>
      <content src="text/ch1.xhtml"/>
      <navPoint id="np1-1" playOrder="2">
        <navLabel><text>Section 1.1</text></navLabel>
        <content src="text/ch1.xhtml#s1"/>
      </navPoint>
    </navPoint>
    <navPoint id="np2" playOrder="3">
      <navLabel><text>Глава 2</text></navLabel>
      <content src="text/ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

// Chapter returns a minimal XHTML document with an h1 heading and a paragraph.
func Chapter(heading, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>` + heading + `</title><link rel="stylesheet" href="../styles/main.css"/></head>
<body><h1>` + heading + `</h1><p>` + body + `</p></body>
</html>`
}

// Files returns the entries of a small valid EPUB 2 book with three spine
// items, a nested two-entry NCX, a stylesheet and a PNG cover.
func Files(tb testing.TB) map[string][]byte {
	tb.Helper()
	return map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(ContainerXML),
		"OEBPS/content.opf":      []byte(PackageOPF),
		"OEBPS/toc.ncx":          []byte(NCX),
		"OEBPS/text/ch1.xhtml":   []byte(Chapter("Глава 1 – Начало", "Первый текст о книге. Книга хорошая.")),
		"OEBPS/text/ch2.xhtml":   []byte(Chapter("Глава 2 – Продолжение", "Второй текст. Книга продолжается.")),
		"OEBPS/text/ch3.xhtml":   []byte(Chapter("Глава 3 – Конец", "Третий текст.")),
		"OEBPS/styles/main.css":  []byte("/* main */\nbody {\n  margin: 0 ;\n  color : black;\n}\n"),
		"OEBPS/images/cover.png": PNG(tb),
	}
}

// Zip serialises entries as an EPUB, writing mimetype first and uncompressed.
func Zip(tb testing.TB, files map[string][]byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	if content, ok := files["mimetype"]; ok {
		mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			tb.Fatalf("failed to create mimetype: %v", err)
		}
		if _, err := mw.Write(content); err != nil {
			tb.Fatalf("failed to write mimetype: %v", err)
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			tb.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			tb.Fatalf("failed to write %s: %v", name, err)
		}
	}

	if err := w.Close(); err != nil {
		tb.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// Write stores the archive built from files under dir and returns its path.
func Write(tb testing.TB, dir string, files map[string][]byte) string {
	tb.Helper()
	p := filepath.Join(dir, "test.epub")
	if err := os.WriteFile(p, Zip(tb, files), 0o644); err != nil {
		tb.Fatalf("failed to write test epub: %v", err)
	}
	return p
}
