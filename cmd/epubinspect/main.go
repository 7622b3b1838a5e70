package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/yuanying/epubinspect/internal/config"
	"github.com/yuanying/epubinspect/internal/epub"
	"github.com/yuanying/epubinspect/internal/library"
	"github.com/yuanying/epubinspect/internal/pipeline"
	"github.com/yuanying/epubinspect/internal/report"
	"github.com/yuanying/epubinspect/internal/tasks"
	"github.com/yuanying/epubinspect/internal/translate"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultTarget    = "en"
	defaultRegion    = "us-central1"

	catalogFileName = "library.db"
	reportFileName  = "report.json"
)

type cliOptions struct {
	InputPath  string
	OutputDir  string
	ReportPath string
	Config     config.Config
	Logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubinspect [flags] <book.epub>",
		Short: "Inspect an EPUB book with a set of parallel analysis tasks",
		Long: `epubinspect opens an EPUB archive, resolves its package document and
navigation, and runs a fixed set of inspection tasks on it concurrently:
metadata, text analysis, image extraction, keyword search, heading
formatting, table of contents, chapter splitting, stylesheet minification,
library archiving and translation of the first chapter.

Every task reports success, failure or skip in a JSON or YAML report.
Task failures never change the exit status.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			_, err = run(cmd.Context(), opts)
			return err
		},
	}

	f := cmd.Flags()
	f.StringP("search", "s", "", "Term for keyword search and text analysis")
	f.StringP("output", "o", "", "Directory for extracted artifacts (default: <book>_out next to the input)")
	f.StringP("library", "l", "", "Library directory or gs://bucket/prefix receiving a copy of the book")
	f.String("catalog", "", "SQLite catalog of archived books (default: <library>/library.db for local libraries)")
	f.StringP("report", "r", "", "Report file, .yaml or .yml selects YAML (default: <output>/report.json)")
	f.Int("workers", 0, "Tasks running at once (0 = number of CPUs)")
	f.String("config", "", "YAML configuration file; flags override its values")
	f.String("translate-to", defaultTarget, "Target language of the first chapter translation")
	f.String("vertex-project", "", "Google Cloud project for Vertex AI translation")
	f.String("vertex-region", defaultRegion, "Vertex AI region")
	f.String("vertex-model", translate.DefaultVertexModel, "Vertex AI model")
	f.String("gcp-credentials", "", "Service account key file for Google Cloud (default: application default credentials)")
	f.Bool("no-image-filters", false, "Extract images without filtered variants")
	f.Int("pixelate", tasks.DefaultPixelateFactor, "Block size of the pixelated image variant")
	f.Float64("contrast", tasks.DefaultContrastFactor, "Contrast factor of the contrast image variant")
	f.String("log-level", defaultLogLevel, "Log level (debug, info, warn, error)")
	f.String("log-format", defaultLogFormat, "Log format (text, json)")
	f.BoolP("verbose", "v", false, "Enable verbose logging (same as --log-level=debug)")

	return cmd
}

func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	if len(args) != 1 {
		return cliOptions{}, fmt.Errorf("expected exactly one input file, got %d", len(args))
	}
	flags := cmd.Flags()

	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cliOptions{}, fmt.Errorf("--config: %w", err)
		}
		cfg = loaded
	}

	strs := []struct {
		flag string
		dst  *string
	}{
		{"search", &cfg.Search},
		{"output", &cfg.Output},
		{"library", &cfg.Library},
		{"catalog", &cfg.Catalog},
		{"report", &cfg.Report},
		{"translate-to", &cfg.Translation.Target},
		{"vertex-project", &cfg.Translation.Project},
		{"vertex-region", &cfg.Translation.Region},
		{"vertex-model", &cfg.Translation.Model},
		{"gcp-credentials", &cfg.Translation.Credentials},
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
	}
	for _, s := range strs {
		if flags.Changed(s.flag) {
			*s.dst, _ = flags.GetString(s.flag)
		}
	}

	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
		if cfg.Workers < 0 {
			return cliOptions{}, fmt.Errorf("--workers must be >= 0, got %d", cfg.Workers)
		}
	}
	if flags.Changed("pixelate") {
		cfg.Images.Pixelate, _ = flags.GetInt("pixelate")
		if cfg.Images.Pixelate < 2 {
			return cliOptions{}, fmt.Errorf("--pixelate must be >= 2, got %d", cfg.Images.Pixelate)
		}
	}
	if flags.Changed("contrast") {
		cfg.Images.Contrast, _ = flags.GetFloat64("contrast")
		if cfg.Images.Contrast <= 0 {
			return cliOptions{}, fmt.Errorf("--contrast must be > 0, got %v", cfg.Images.Contrast)
		}
	}
	if noFilters, _ := flags.GetBool("no-image-filters"); noFilters {
		cfg.Images.Filters = false
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return cliOptions{}, fmt.Errorf("--log-level must be one of: debug, info, warn, error")
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return cliOptions{}, fmt.Errorf("--log-format must be one of: text, json")
	}
	if library.IsGCSPath(cfg.Library) {
		if _, _, err := library.ParseGCSPath(cfg.Library); err != nil {
			return cliOptions{}, fmt.Errorf("--library: %w", err)
		}
	}
	if strings.TrimSpace(cfg.Translation.Target) == "" {
		return cliOptions{}, errors.New("--translate-to must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		return cliOptions{}, err
	}

	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}

	inputPath := args[0]
	outputDir := cfg.Output
	if outputDir == "" {
		outputDir = defaultOutputPath(inputPath)
	}
	reportPath := cfg.Report
	if reportPath == "" {
		reportPath = filepath.Join(outputDir, reportFileName)
	}
	if cfg.Catalog == "" && cfg.Library != "" && !library.IsGCSPath(cfg.Library) {
		cfg.Catalog = filepath.Join(cfg.Library, catalogFileName)
	}

	return cliOptions{
		InputPath:  inputPath,
		OutputDir:  outputDir,
		ReportPath: reportPath,
		Config:     cfg,
		Logger:     buildLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format),
	}, nil
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// defaultOutputPath places artifacts in <book>_out beside the input.
func defaultOutputPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_out"
}

// run inspects one book. It fails only when the archive cannot be opened,
// its container descriptor is broken, or the output cannot be set up;
// task failures end up in the report.
func run(ctx context.Context, opts cliOptions) (report.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	logger.Info("inspecting", "input", opts.InputPath, "output", opts.OutputDir)

	archive, err := epub.Open(opts.InputPath)
	if err != nil {
		return report.Document{}, fmt.Errorf("failed to open EPUB: %w", err)
	}
	defer archive.Close()

	pkg, structureErr := epub.NewResolver(logger).Resolve(archive)
	if errors.Is(structureErr, epub.ErrMalformedContainer) {
		return report.Document{}, structureErr
	}
	if structureErr != nil {
		logger.Warn("document structure unavailable", "error", structureErr)
	}
	src := pipeline.NewSource(opts.InputPath, archive, pkg, structureErr, logger)

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return report.Document{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	lib, closeLib, err := openLibrary(ctx, cfg)
	if err != nil {
		return report.Document{}, err
	}
	defer closeLib()

	translator, closeTranslator := openTranslator(ctx, cfg, logger)
	defer closeTranslator()

	reg := tasks.NewRegistry(tasks.Options{
		SearchTerm: cfg.Search,
		Output:     osfs.New(opts.OutputDir),
		OutputDir:  opts.OutputDir,
		Images: tasks.ImageOptions{
			Filters:        cfg.Images.Filters,
			PixelateFactor: cfg.Images.Pixelate,
			ContrastFactor: cfg.Images.Contrast,
		},
		Library:    lib,
		Translator: translator,
		TargetLang: cfg.Translation.Target,
	})

	res, err := pipeline.New(reg, pipeline.Options{Workers: cfg.Workers, Logger: logger}).Run(ctx, src)
	if err != nil {
		return report.Document{}, fmt.Errorf("inspection failed: %w", err)
	}

	doc := report.Build(opts.InputPath, res)
	reportDir, reportName := filepath.Split(opts.ReportPath)
	if reportDir == "" {
		reportDir = "."
	}
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return doc, fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := report.WriteFile(osfs.New(reportDir), reportName, doc); err != nil {
		return doc, err
	}

	logger.Info("report written", "path", opts.ReportPath, "failed", doc.Summary.Failed, "skipped", doc.Summary.Skipped)
	return doc, nil
}

// openLibrary builds the archiving destination. A nil library makes the
// archiving task fail on its own.
func openLibrary(ctx context.Context, cfg config.Config) (*library.Library, func(), error) {
	noop := func() {}
	if cfg.Library == "" {
		return nil, noop, nil
	}

	var (
		store   library.Store
		closers []func() error
	)
	if library.IsGCSPath(cfg.Library) {
		gcs, err := library.NewGCSStore(ctx, cfg.Library, cfg.Translation.Credentials)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open library %s: %w", cfg.Library, err)
		}
		store = gcs
		closers = append(closers, gcs.Close)
	} else {
		if err := os.MkdirAll(cfg.Library, 0o755); err != nil {
			return nil, noop, fmt.Errorf("failed to create library directory: %w", err)
		}
		store = library.NewDirStore(cfg.Library)
	}

	lib := &library.Library{Store: store}
	if cfg.Catalog != "" {
		cat, err := library.OpenCatalog(cfg.Catalog)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, noop, err
		}
		lib.Catalog = cat
		closers = append(closers, cat.Close)
	}

	return lib, func() {
		for _, c := range closers {
			_ = c()
		}
	}, nil
}

func openTranslator(ctx context.Context, cfg config.Config, logger *slog.Logger) (translate.Translator, func()) {
	t := cfg.Translation
	if t.Project == "" {
		return translate.Unconfigured{}, func() {}
	}
	v, err := translate.NewVertex(ctx, translate.VertexConfig{
		Project:         t.Project,
		Region:          t.Region,
		Model:           t.Model,
		CredentialsFile: t.Credentials,
	}, logger)
	if err != nil {
		logger.Warn("vertex ai unavailable", "project", t.Project, "error", err)
		return translate.Unavailable{Backend: "vertex:" + t.Model, Err: err}, func() {}
	}
	return v, func() { _ = v.Close() }
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
