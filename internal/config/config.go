// Package config loads run settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yuanying/epubinspect/internal/library"
	"github.com/yuanying/epubinspect/internal/tasks"
	"github.com/yuanying/epubinspect/internal/translate"
)

var ErrInvalid = errors.New("config: invalid configuration")

// Config holds every setting of a run. Command-line flags override it.
type Config struct {
	Search  string `yaml:"search"`
	Output  string `yaml:"output"`
	Library string `yaml:"library"`
	Catalog string `yaml:"catalog"`
	Report  string `yaml:"report"`
	Workers int    `yaml:"workers"`

	Log         Log         `yaml:"log"`
	Images      Images      `yaml:"images"`
	Translation Translation `yaml:"translation"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Images struct {
	Filters  bool    `yaml:"filters"`
	Pixelate int     `yaml:"pixelate"`
	Contrast float64 `yaml:"contrast"`
}

type Translation struct {
	Target      string `yaml:"target"`
	Project     string `yaml:"vertex_project"`
	Region      string `yaml:"vertex_region"`
	Model       string `yaml:"vertex_model"`
	Credentials string `yaml:"gcp_credentials"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log:    Log{Level: "info", Format: "text"},
		Images: Images{Filters: true, Pixelate: tasks.DefaultPixelateFactor, Contrast: tasks.DefaultContrastFactor},
		Translation: Translation{
			Target: "en",
			Region: "us-central1",
			Model:  translate.DefaultVertexModel,
		},
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML settings on top of Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

// Validate checks value ranges. Error messages name the offending key.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Images.Pixelate < 2 {
		errs = append(errs, fmt.Errorf("images.pixelate must be >= 2, got %d", c.Images.Pixelate))
	}
	if c.Images.Contrast <= 0 {
		errs = append(errs, fmt.Errorf("images.contrast must be > 0, got %v", c.Images.Contrast))
	}
	if library.IsGCSPath(c.Library) {
		if _, _, err := library.ParseGCSPath(c.Library); err != nil {
			errs = append(errs, fmt.Errorf("library: %w", err))
		}
	}
	if strings.TrimSpace(c.Translation.Target) == "" {
		errs = append(errs, errors.New("translation.target must not be empty"))
	}
	if c.Translation.Project != "" && c.Translation.Region == "" {
		errs = append(errs, errors.New("translation.vertex_region is required with vertex_project"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
