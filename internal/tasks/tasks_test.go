package tasks

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/yuanying/epubinspect/internal/chapters"
	"github.com/yuanying/epubinspect/internal/epub"
	"github.com/yuanying/epubinspect/internal/epubtest"
	"github.com/yuanying/epubinspect/internal/library"
	"github.com/yuanying/epubinspect/internal/pipeline"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeTranslator struct {
	mu   sync.Mutex
	got  string
	err  error
	from string
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) Translate(_ context.Context, text, from, to string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got, f.from = text, from
	if f.err != nil {
		return "", f.err
	}
	return "[" + to + "] " + text, nil
}

// openSource writes files as an EPUB on disk and resolves it.
func openSource(t *testing.T, files map[string][]byte) *pipeline.Source {
	t.Helper()
	p := epubtest.Write(t, t.TempDir(), files)
	a, err := epub.Open(p)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	pkg, err := epub.NewResolver(discard).Resolve(a)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return pipeline.NewSource(p, a, pkg, nil, discard)
}

func testOptions(t *testing.T, out billy.Filesystem, tr *fakeTranslator) Options {
	t.Helper()
	cat, err := library.OpenCatalog(":memory:")
	if err != nil {
		t.Fatalf("OpenCatalog() error = %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	return Options{
		SearchTerm: "книга",
		Output:     out,
		Images:     ImageOptions{Filters: true},
		Library: &library.Library{
			Store:   &library.FSStore{FS: memfs.New(), Root: "/library"},
			Catalog: cat,
		},
		Translator: tr,
		TargetLang: "en",
	}
}

func TestRegistry_FullRun(t *testing.T) {
	out := memfs.New()
	tr := &fakeTranslator{}
	reg := NewRegistry(testOptions(t, out, tr))

	report, err := pipeline.New(reg, pipeline.Options{Workers: 3, Logger: discard}).Run(context.Background(), openSource(t, epubtest.Files(t)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, id := range pipeline.AllTasks() {
		if res := report.Result(id); res.Status != pipeline.StatusSucceeded {
			t.Fatalf("%s = %s: %v", id, res.Status, res.Err)
		}
	}

	t.Run("metadata", func(t *testing.T) {
		m := report.Result(pipeline.TaskMetadata).Value.(Metadata)
		if m.Title != "Test Book" || m.Author != "Jane Doe" || m.Language != "ru" || m.Date != "2020-01-01" {
			t.Errorf("metadata = %+v", m)
		}
		if m.Cover == nil || m.Cover.Href != "OEBPS/images/cover.png" || m.Cover.Method != "meta" {
			t.Errorf("cover = %+v", m.Cover)
		}
	})

	t.Run("keywords", func(t *testing.T) {
		k := report.Result(pipeline.TaskKeywords).Value.(KeywordSearch)
		if k.MatchCount != 2 || len(k.Matches) != 2 {
			t.Fatalf("keywords = %+v", k)
		}
		if !strings.Contains(k.Matches[0], "Книга хорошая") {
			t.Errorf("first match context = %q", k.Matches[0])
		}
	})

	t.Run("analysis", func(t *testing.T) {
		a := report.Result(pipeline.TaskTextAnalysis).Value.(TextAnalysis)
		if a.SearchFrequency != 2 || a.SearchTerm != "книга" {
			t.Errorf("search frequency = %d (%q)", a.SearchFrequency, a.SearchTerm)
		}
		if a.WordCount == 0 || a.SentenceCount == 0 || a.ParagraphCount == 0 {
			t.Errorf("analysis = %+v", a)
		}
	})

	t.Run("images", func(t *testing.T) {
		img := report.Result(pipeline.TaskImages).Value.(ImageExtraction)
		if img.Count != 1 || len(img.Invalid) != 0 || len(img.Filtered) != 4 {
			t.Fatalf("images = %+v", img)
		}
		for _, name := range []string{"images/cover.png", "images/filtered/cover_pixelated.png", "images/filtered/cover_grayscale.png"} {
			if _, err := out.Stat(name); err != nil {
				t.Errorf("%s not written: %v", name, err)
			}
		}
	})

	t.Run("formatting", func(t *testing.T) {
		f := report.Result(pipeline.TaskFormatting).Value.(Formatting)
		if f.FormattedHeadersCount != 6 {
			t.Fatalf("formatted headers = %d, want 6: %+v", f.FormattedHeadersCount, f.Headers)
		}
		last := f.Headers[5]
		if last.Text != "Глава 3 – Конец" || last.Uppercase != "ГЛАВА 3 – КОНЕЦ" {
			t.Errorf("header = %+v", last)
		}
		if last.Bold != `<span style="font-weight: bold;">Глава 3 – Конец</span>` {
			t.Errorf("bold = %q", last.Bold)
		}
	})

	t.Run("navigation", func(t *testing.T) {
		nav := report.Result(pipeline.TaskNavigation).Value.(*Navigation)
		if nav.Source != "ncx" || nav.TotalEntries != 3 || len(nav.Entries) != 2 {
			t.Fatalf("navigation = %+v", nav)
		}
		page, err := util.ReadFile(out, "toc.html")
		if err != nil {
			t.Fatalf("toc.html: %v", err)
		}
		if !strings.Contains(string(page), `href="OEBPS/text/ch1.xhtml#s1"`) {
			t.Errorf("toc.html = %s", page)
		}
	})

	t.Run("chapters", func(t *testing.T) {
		c := report.Result(pipeline.TaskChapters).Value.(ChapterSplit)
		if c.TotalChapters != 3 || c.Strategy != "markup-heading" || c.OutputZip != "chapters.zip" {
			t.Fatalf("chapters = %+v", c)
		}
		if c.Chapters[1].Heading != "Глава 2 – Продолжение" {
			t.Errorf("heading = %q", c.Chapters[1].Heading)
		}
		if _, err := out.Stat("chapters.zip"); err != nil {
			t.Errorf("chapters.zip not written: %v", err)
		}
	})

	t.Run("styles", func(t *testing.T) {
		s := report.Result(pipeline.TaskStyles).Value.(StyleProcessing)
		if s.TotalStyles != 1 || s.OptimizedSize >= s.OriginalSize {
			t.Fatalf("styles = %+v", s)
		}
		got, err := util.ReadFile(out, "styles/main.css")
		if err != nil || string(got) != "body{margin:0;color:black}" {
			t.Errorf("styles/main.css = (%q, %v)", got, err)
		}
	})

	t.Run("library", func(t *testing.T) {
		l := report.Result(pipeline.TaskLibrary).Value.(library.Result)
		if l.Destination != "/library/test.epub" || l.CatalogID == 0 || len(l.SHA256) != 64 {
			t.Errorf("library = %+v", l)
		}
	})

	t.Run("translation", func(t *testing.T) {
		tl := report.Result(pipeline.TaskTranslation).Value.(Translation)
		if tl.SourcePath != "OEBPS/text/ch1.xhtml" || tl.Backend != "fake" || tl.TargetLang != "en" {
			t.Fatalf("translation = %+v", tl)
		}
		if !strings.Contains(tl.Excerpt, "Первый текст") || !strings.HasPrefix(tl.Translation, "[en] ") {
			t.Errorf("translation = %+v", tl)
		}
		if tr.got != tl.Excerpt {
			t.Errorf("translator received %q", tr.got)
		}
	})
}

func TestRegistry_TranslationFailure(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("quota exceeded")}
	reg := NewRegistry(testOptions(t, memfs.New(), tr))

	report, err := pipeline.New(reg, pipeline.Options{Workers: 1, Logger: discard}).Run(context.Background(), openSource(t, epubtest.Files(t)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	res := report.Result(pipeline.TaskTranslation)
	if res.Status != pipeline.StatusFailed || !strings.Contains(res.Err.Error(), "quota exceeded") {
		t.Fatalf("translation = %+v", res)
	}
	if report.Count(pipeline.StatusSucceeded) != pipeline.NumTasks-1 {
		t.Errorf("succeeded = %d", report.Count(pipeline.StatusSucceeded))
	}
}

func TestRegistry_NoNavigationSkipsTranslation(t *testing.T) {
	files := epubtest.Files(t)
	delete(files, "OEBPS/toc.ncx")
	reg := NewRegistry(testOptions(t, memfs.New(), &fakeTranslator{}))

	report, err := pipeline.New(reg, pipeline.Options{Logger: discard}).Run(context.Background(), openSource(t, files))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	nav := report.Result(pipeline.TaskNavigation)
	if nav.Status != pipeline.StatusFailed || !errors.Is(nav.Err, ErrNoNavigation) {
		t.Fatalf("navigation = %+v", nav)
	}
	tl := report.Result(pipeline.TaskTranslation)
	if tl.Status != pipeline.StatusSkipped || !errors.Is(tl.Err, pipeline.ErrDependencyFailed) || !strings.Contains(tl.Err.Error(), "generate_toc") {
		t.Fatalf("translation = %+v", tl)
	}
}

func TestRegistry_MissingOptions(t *testing.T) {
	opts := Options{Translator: &fakeTranslator{}}
	report, err := pipeline.New(NewRegistry(opts), pipeline.Options{Logger: discard}).Run(context.Background(), openSource(t, epubtest.Files(t)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tests := []struct {
		id      pipeline.TaskID
		wantErr error
	}{
		{id: pipeline.TaskKeywords, wantErr: ErrNoSearchTerm},
		{id: pipeline.TaskImages, wantErr: ErrNoOutput},
		{id: pipeline.TaskChapters, wantErr: ErrNoOutput},
		{id: pipeline.TaskLibrary, wantErr: library.ErrNoDestination},
	}
	for _, tt := range tests {
		res := report.Result(tt.id)
		if res.Status != pipeline.StatusFailed || !errors.Is(res.Err, tt.wantErr) {
			t.Errorf("%s = %+v, want %v", tt.id, res, tt.wantErr)
		}
	}
	// Tasks without a required option still succeed.
	for _, id := range []pipeline.TaskID{pipeline.TaskTextAnalysis, pipeline.TaskNavigation, pipeline.TaskStyles, pipeline.TaskTranslation} {
		if res := report.Result(id); res.Status != pipeline.StatusSucceeded {
			t.Errorf("%s = %+v, want success", id, res)
		}
	}
}

func paragraphChapter(title, body string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>` + title + `</title></head>
<body><p class="title">` + title + `</p><p>` + body + `</p></body>
</html>`)
}

func TestSplitChapters_ParagraphHeadings(t *testing.T) {
	files := epubtest.Files(t)
	files["OEBPS/text/ch1.xhtml"] = paragraphChapter("Глава 1 – Начало", "Первый текст.")
	files["OEBPS/text/ch2.xhtml"] = paragraphChapter("Глава 2 – Продолжение", "Второй текст.")
	files["OEBPS/text/ch3.xhtml"] = paragraphChapter("Глава 3 – Конец", "Третий текст.")

	out := memfs.New()
	r := &runner{opts: Options{Output: out, Segmenter: chapters.New()}}
	v, err := r.splitChapters(context.Background(), openSource(t, files), nil)
	if err != nil {
		t.Fatalf("splitChapters() error = %v", err)
	}

	split := v.(ChapterSplit)
	if split.Strategy != "numbered-heading" || split.TotalChapters != 3 {
		t.Fatalf("split = %+v", split)
	}
	if split.Chapters[1].Heading != "Глава 2 – Продолжение" {
		t.Errorf("Chapters[1].Heading = %q", split.Chapters[1].Heading)
	}

	data, err := util.ReadFile(out, "chapters.zip")
	if err != nil {
		t.Fatalf("chapters.zip not written: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("invalid zip: %v", err)
	}
	if len(zr.File) != 3 || zr.File[0].Name != "chapter_001.txt" {
		t.Fatalf("zip entries = %d", len(zr.File))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	var first bytes.Buffer
	if _, err := first.ReadFrom(rc); err != nil {
		t.Fatalf("read chapter: %v", err)
	}
	if got := first.String(); got != "Глава 1 – Начало\nПервый текст." {
		t.Errorf("chapter_001.txt = %q", got)
	}
}

func TestTranslation_UnexpectedUpstream(t *testing.T) {
	r := &runner{opts: Options{Translator: &fakeTranslator{}}}
	if _, err := r.translateFirstChapter(context.Background(), openSource(t, epubtest.Files(t)), "not navigation"); err == nil {
		t.Fatal("expected error for unexpected upstream value")
	}
	if _, err := r.translateFirstChapter(context.Background(), openSource(t, epubtest.Files(t)), &Navigation{}); !errors.Is(err, ErrNoFirstChapter) {
		t.Fatalf("error = %v, want ErrNoFirstChapter", err)
	}
}
