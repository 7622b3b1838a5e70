// Package report serializes a pipeline report as JSON or YAML.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/yuanying/epubinspect/internal/pipeline"
)

// Format is a report serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension; anything but .yaml
// and .yml is JSON.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is the serialized form of a run.
type Document struct {
	Source    string               `json:"source" yaml:"source"`
	ElapsedMS float64              `json:"elapsed_ms" yaml:"elapsed_ms"`
	Summary   Summary              `json:"summary" yaml:"summary"`
	Tasks     map[string]TaskEntry `json:"tasks" yaml:"tasks"`
}

type Summary struct {
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// TaskEntry is one task of the document. DurationMS is omitted for tasks
// that never ran.
type TaskEntry struct {
	Status     string   `json:"status" yaml:"status"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS *float64 `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	Value      any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// Build converts r into a Document. Every task of the report appears
// exactly once, keyed by its name.
func Build(source string, r *pipeline.Report) Document {
	doc := Document{
		Source:    source,
		ElapsedMS: millis(r.Elapsed),
		Summary: Summary{
			Succeeded: r.Count(pipeline.StatusSucceeded),
			Failed:    r.Count(pipeline.StatusFailed),
			Skipped:   r.Count(pipeline.StatusSkipped),
		},
		Tasks: make(map[string]TaskEntry, r.Len()),
	}
	for _, res := range r.Results {
		e := TaskEntry{Status: res.Status.String(), Value: res.Value}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		if res.Ran() {
			ms := millis(res.Duration)
			e.DurationMS = &ms
		}
		doc.Tasks[res.Task.String()] = e
	}
	return doc
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Encode writes doc to w in format.
func Encode(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}

// WriteFile encodes doc into name on fs, choosing the format from the
// extension of name.
func WriteFile(fs billy.Filesystem, name string, doc Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, FormatFor(name)); err != nil {
		return err
	}
	if dir := path.Dir(filepath.ToSlash(name)); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := util.WriteFile(fs, name, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
