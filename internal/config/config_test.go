package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "epubinspect.yaml")
	data := `
search: глава
workers: 3
library: gs://books/shelf
log:
  level: debug
images:
  filters: false
translation:
  target: de
  vertex_project: my-project
`
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Search != "глава" || cfg.Workers != 3 || cfg.Library != "gs://books/shelf" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want level from file and default format", cfg.Log)
	}
	if cfg.Images.Filters || cfg.Images.Pixelate != 10 {
		t.Errorf("Images = %+v", cfg.Images)
	}
	if cfg.Translation.Target != "de" || cfg.Translation.Project != "my-project" || cfg.Translation.Region != "us-central1" {
		t.Errorf("Translation = %+v", cfg.Translation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := Parse([]byte("unknown_key: 1\n")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Parse(unknown key) error = %v, want ErrInvalid", err)
	}

	cfg, err := Parse(nil)
	if err != nil || cfg.Log.Level != "info" {
		t.Fatalf("Parse(empty) = (%+v, %v)", cfg, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "workers", mutate: func(c *Config) { c.Workers = -1 }, want: "workers"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "trace" }, want: "log.level"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, want: "log.format"},
		{name: "pixelate", mutate: func(c *Config) { c.Images.Pixelate = 1 }, want: "images.pixelate"},
		{name: "contrast", mutate: func(c *Config) { c.Images.Contrast = 0 }, want: "images.contrast"},
		{name: "gcs", mutate: func(c *Config) { c.Library = "gs://" }, want: "library"},
		{name: "target", mutate: func(c *Config) { c.Translation.Target = " " }, want: "translation.target"},
		{name: "region", mutate: func(c *Config) { c.Translation.Project, c.Translation.Region = "p", "" }, want: "vertex_region"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
