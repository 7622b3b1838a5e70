package tasks

import (
	"context"

	"github.com/yuanying/epubinspect/internal/pipeline"
)

// Metadata is the payload of extract_metadata.
type Metadata struct {
	Title       string   `json:"title" yaml:"title"`
	Author      string   `json:"author" yaml:"author"`
	Creators    []string `json:"creators,omitempty" yaml:"creators,omitempty"`
	Language    string   `json:"language" yaml:"language"`
	Publisher   string   `json:"publisher" yaml:"publisher"`
	Date        string   `json:"date" yaml:"date"`
	Description string   `json:"description" yaml:"description"`
	Identifier  string   `json:"identifier" yaml:"identifier"`
	Subjects    []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Rights      string   `json:"rights,omitempty" yaml:"rights,omitempty"`
	Version     string   `json:"epub_version" yaml:"epub_version"`
	Cover       *Cover   `json:"cover,omitempty" yaml:"cover,omitempty"`
}

// Cover names the detected cover image.
type Cover struct {
	Href      string `json:"href" yaml:"href"`
	MediaType string `json:"media_type" yaml:"media_type"`
	Method    string `json:"detected_by" yaml:"detected_by"`
}

func (r *runner) metadata(_ context.Context, src *pipeline.Source, _ any) (any, error) {
	pkg, err := src.RequirePackage()
	if err != nil {
		return nil, err
	}
	m := pkg.Metadata
	out := Metadata{
		Title:       m.Title,
		Author:      m.Author(),
		Language:    m.Language,
		Publisher:   m.Publisher,
		Date:        m.Date,
		Description: m.Description,
		Identifier:  m.Identifier,
		Subjects:    m.Subjects,
		Rights:      m.Rights,
		Version:     pkg.Version,
	}
	for _, c := range m.Creators {
		out.Creators = append(out.Creators, c.Name)
	}
	if c := pkg.DetectCover(); c != nil {
		out.Cover = &Cover{Href: c.Href, MediaType: c.MediaType, Method: c.DetectionMethod}
	}
	return out, nil
}
