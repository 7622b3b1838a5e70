package tasks

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/yuanying/epubinspect/internal/epub"
	"github.com/yuanying/epubinspect/internal/pipeline"
)

const (
	DefaultPixelateFactor = 10
	DefaultContrastFactor = 2.0
	defaultJPEGQuality    = 85
	defaultMaxPixels      = 100 * 1000 * 1000 // 100 megapixels
)

// ImageOptions configures image extraction.
type ImageOptions struct {
	// Filters enables writing the filtered variants of each raster image.
	Filters        bool
	PixelateFactor int
	ContrastFactor float64
	JPEGQuality    int
	MaxPixels      int // Total pixel count limit for decode (width * height)
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.PixelateFactor <= 1 {
		o.PixelateFactor = DefaultPixelateFactor
	}
	if o.ContrastFactor <= 0 {
		o.ContrastFactor = DefaultContrastFactor
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = defaultJPEGQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = defaultMaxPixels
	}
	return o
}

// ImageExtraction is the payload of extract_images.
type ImageExtraction struct {
	Count     int      `json:"count" yaml:"count"`
	OutputDir string   `json:"output_dir" yaml:"output_dir"`
	Extracted []string `json:"extracted_files" yaml:"extracted_files"`
	Invalid   []string `json:"invalid_files" yaml:"invalid_files"`
	Filtered  []string `json:"filtered_files,omitempty" yaml:"filtered_files,omitempty"`
}

// ImageFilter is a named whole-image transformation.
type ImageFilter struct {
	Name  string
	Apply func(image.Image) image.Image
}

// FilterSet returns the variants written for every raster image.
func (o ImageOptions) FilterSet() []ImageFilter {
	o = o.withDefaults()
	return []ImageFilter{
		{Name: "pixelated", Apply: func(img image.Image) image.Image { return Pixelate(img, o.PixelateFactor) }},
		{Name: "contrast", Apply: func(img image.Image) image.Image { return imaging.AdjustContrast(img, contrastPercentage(o.ContrastFactor)) }},
		{Name: "mirrored", Apply: func(img image.Image) image.Image { return imaging.FlipH(img) }},
		{Name: "grayscale", Apply: func(img image.Image) image.Image { return imaging.Grayscale(img) }},
	}
}

// Pixelate shrinks img by factor and scales it back with nearest-neighbour
// sampling, producing blocks of factor x factor pixels.
func Pixelate(img image.Image, factor int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	small := imaging.Resize(img, max(1, w/factor), max(1, h/factor), imaging.NearestNeighbor)
	return imaging.Resize(small, w, h, imaging.NearestNeighbor)
}

// contrastPercentage maps an enhancement factor (1 = unchanged) onto the
// -100..100 range imaging expects.
func contrastPercentage(factor float64) float64 {
	p := (factor - 1) * 100
	return min(max(p, -100), 100)
}

func (r *runner) extractImages(_ context.Context, src *pipeline.Source, _ any) (any, error) {
	pkg, err := src.RequirePackage()
	if err != nil {
		return nil, err
	}
	if r.opts.Output == nil {
		return nil, ErrNoOutput
	}
	opts := r.opts.Images.withDefaults()

	out := ImageExtraction{
		OutputDir: r.location("images"),
		Extracted: []string{},
		Invalid:   []string{},
	}
	used := make(map[string]bool)

	items := pkg.ItemsByMediaType(func(mt string) bool { return strings.HasPrefix(mt, "image/") })
	for _, item := range items {
		data, err := src.Archive.ReadFile(item.Href)
		if err != nil {
			src.Logger.Warn("failed to read image, skipping", "path", item.Href, "err", err)
			continue
		}
		name := uniqueName(path.Base(item.Href), used)
		loc, err := r.writeOutput("images/"+name, data)
		if err != nil {
			return nil, err
		}
		out.Extracted = append(out.Extracted, loc)
		out.Count++

		if !epub.IsRasterImage(item.MediaType) {
			continue
		}
		img, format, err := decodeImage(data, opts.MaxPixels)
		if err != nil {
			src.Logger.Warn("invalid image", "path", item.Href, "err", err)
			out.Invalid = append(out.Invalid, loc)
			continue
		}
		if !opts.Filters || img == nil {
			continue
		}

		stem := strings.TrimSuffix(name, path.Ext(name))
		for _, f := range opts.FilterSet() {
			encoded, ext, err := encodeVariant(f.Apply(img), format, opts.JPEGQuality)
			if err != nil {
				src.Logger.Warn("failed to encode filtered image", "path", item.Href, "filter", f.Name, "err", err)
				continue
			}
			floc, err := r.writeOutput("images/filtered/"+stem+"_"+f.Name+ext, encoded)
			if err != nil {
				return nil, err
			}
			out.Filtered = append(out.Filtered, floc)
		}
	}
	return out, nil
}

// decodeImage fully decodes data. Images above maxPixels are checked by
// header only and returned as nil without error.
func decodeImage(data []byte, maxPixels int) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("image header decode failed: %w", err)
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if maxPixels > 0 && pixels > uint64(maxPixels) {
		return nil, format, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("image decode failed: %w", err)
	}
	return img, format, nil
}

// encodeVariant keeps JPEG sources as JPEG and writes everything else as PNG.
func encodeVariant(img image.Image, format string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, "", fmt.Errorf("jpeg encode failed: %w", err)
		}
		return buf.Bytes(), ".jpg", nil
	default:
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return nil, "", fmt.Errorf("png encode failed: %w", err)
		}
		return buf.Bytes(), ".png", nil
	}
}

// uniqueName returns name, or name with a numeric suffix when taken.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	used[candidate] = true
	return candidate
}
