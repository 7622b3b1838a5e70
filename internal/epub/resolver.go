package epub

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	containerPath      = "META-INF/container.xml"
	containerNamespace = "urn:oasis:names:tc:opendocument:xmlns:container"

	mediaTypeOPF = "application/oebps-package+xml"
	mediaTypeNCX = "application/x-dtbncx+xml"
)

var (
	ErrMalformedContainer       = errors.New("epub: container descriptor missing or malformed")
	ErrMissingPackageDocument   = errors.New("epub: package document not found in archive")
	ErrMalformedPackageDocument = errors.New("epub: package document malformed")
)

// container.xml structure
type container struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// Resolver builds a Package from an Archive.
type Resolver struct {
	Logger *slog.Logger
}

// NewResolver creates a Resolver that logs to logger, or slog.Default when nil.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{Logger: logger}
}

// Resolve resolves an archive with a default Resolver.
func Resolve(a *Archive) (*Package, error) {
	return NewResolver(nil).Resolve(a)
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Resolve follows container.xml to the package document and its navigation
// resource. Failures reading the navigation leave Navigation empty and are
// logged rather than returned.
func (r *Resolver) Resolve(a *Archive) (*Package, error) {
	log := r.logger()

	if err := a.ValidateMimetype(); err != nil {
		log.Debug("mimetype check failed", "err", err)
	}

	packagePath, err := r.findPackagePath(a)
	if err != nil {
		return nil, err
	}
	if !a.Has(packagePath) {
		return nil, fmt.Errorf("%w: %s", ErrMissingPackageDocument, packagePath)
	}

	text, enc, err := a.ReadText(packagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPackageDocument, err)
	}
	log.Debug("read package document", "path", packagePath, "encoding", enc)

	doc, err := parsePackageDocument(text)
	if err != nil {
		return nil, err
	}
	r.checkNamespace("package", doc.XMLName.Space, opfNamespace)

	pkg := &Package{
		PackagePath: packagePath,
		BaseDir:     dirOf(packagePath),
		Version:     strings.TrimSpace(doc.Version),
		Metadata:    parseMetadata(&doc.Metadata, doc.UniqueID),
		Manifest:    make(map[string]ManifestItem, len(doc.Manifest.Items)),
		TocID:       strings.TrimSpace(doc.Spine.Toc),
		NavSource:   NavSourceNone,
	}

	for _, item := range doc.Manifest.Items {
		if item.ID == "" {
			log.Warn("manifest item without id, skipping", "href", item.Href)
			continue
		}
		if _, dup := pkg.Manifest[item.ID]; dup {
			log.Warn("duplicate manifest id, skipping", "id", item.ID)
			continue
		}
		href, _ := splitFragment(strings.TrimSpace(item.Href))
		pkg.Manifest[item.ID] = ManifestItem{
			ID:         item.ID,
			Href:       resolvePath(pkg.BaseDir, href),
			MediaType:  strings.TrimSpace(item.MediaType),
			Properties: strings.Fields(item.Properties),
		}
		pkg.ManifestOrder = append(pkg.ManifestOrder, item.ID)
	}

	for _, ref := range doc.Spine.ItemRefs {
		if _, ok := pkg.Manifest[ref.IDRef]; !ok {
			log.Warn("spine item not found in manifest, skipping", "idref", ref.IDRef)
			continue
		}
		pkg.Spine = append(pkg.Spine, SpineItem{
			IDRef:  ref.IDRef,
			Linear: ref.Linear != "no",
		})
	}

	r.resolveNavigation(a, pkg)
	return pkg, nil
}

// findPackagePath parses container.xml and returns the rootfile path,
// preferring the one declared as an OPF package.
func (r *Resolver) findPackagePath(a *Archive) (string, error) {
	if !a.Has(containerPath) {
		return "", fmt.Errorf("%w: %s not found", ErrMalformedContainer, containerPath)
	}
	text, _, err := a.ReadText(containerPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedContainer, err)
	}

	var c container
	if err := decodeXML(text, &c); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedContainer, err)
	}
	r.checkNamespace("container", c.XMLName.Space, containerNamespace)

	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath == "" {
			continue
		}
		if rf.MediaType == mediaTypeOPF || rf.MediaType == "" {
			return normalizePath(rf.FullPath), nil
		}
	}

	// If no media-type match, use the first one
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath != "" {
			return normalizePath(rf.FullPath), nil
		}
	}

	return "", fmt.Errorf("%w: no rootfile declared", ErrMalformedContainer)
}

// resolveNavigation fills the navigation tree from exactly one source:
// the EPUB 3 nav document when it yields entries, otherwise the NCX.
func (r *Resolver) resolveNavigation(a *Archive, pkg *Package) {
	log := r.logger()

	for _, id := range pkg.ManifestOrder {
		item := pkg.Manifest[id]
		if !item.HasProperty("nav") {
			continue
		}
		text, _, err := a.ReadText(item.Href)
		if err != nil {
			log.Warn("failed to read nav document, skipping", "path", item.Href, "err", err)
			break
		}
		title, entries, err := parseNav(text, item.Href)
		if err != nil {
			log.Warn("failed to parse nav document, skipping", "path", item.Href, "err", err)
			break
		}
		if len(entries) == 0 {
			log.Debug("nav document has no entries", "path", item.Href)
			break
		}
		pkg.Navigation = entries
		pkg.NavSource = NavSourceNAV
		pkg.NavPath = item.Href
		pkg.NavTitle = title
		return
	}

	ncxItem, ok := pkg.ncxItem()
	if !ok {
		log.Debug("no navigation resource found")
		return
	}
	text, _, err := a.ReadText(ncxItem.Href)
	if err != nil {
		log.Warn("failed to read NCX, skipping", "path", ncxItem.Href, "err", err)
		return
	}
	doc, entries, err := parseNCX(text, ncxItem.Href)
	if err != nil {
		log.Warn("failed to parse NCX, skipping", "path", ncxItem.Href, "err", err)
		return
	}
	r.checkNamespace("ncx", doc.XMLName.Space, ncxNamespace)

	pkg.Navigation = entries
	pkg.NavSource = NavSourceNCX
	pkg.NavPath = ncxItem.Href
	pkg.NavTitle = collapseSpace(doc.DocTitle.Text)
}

// ncxItem returns the manifest item named by the spine toc attribute, or
// the first item with the NCX media type.
func (p *Package) ncxItem() (ManifestItem, bool) {
	if p.TocID != "" {
		if item, ok := p.Manifest[p.TocID]; ok {
			return item, true
		}
	}
	for _, id := range p.ManifestOrder {
		if item := p.Manifest[id]; item.MediaType == mediaTypeNCX {
			return item, true
		}
	}
	return ManifestItem{}, false
}

func (r *Resolver) checkNamespace(element, got, want string) {
	if got != want {
		r.logger().Debug("unexpected namespace, matching by local name",
			"element", element, "namespace", got, "expected", want)
	}
}
