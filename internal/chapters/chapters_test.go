package chapters

import (
	"errors"
	"strings"
	"testing"
)

func TestSplit_NumberedHeadings(t *testing.T) {
	text := "Глава 1 – Начало\ntext...\nГлава 2 – Продолжение\nmore text"
	second := strings.Index(text, "Глава 2")

	seg, err := New().Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if seg.Strategy != "numbered-heading" {
		t.Errorf("Strategy = %q, want %q", seg.Strategy, "numbered-heading")
	}
	if len(seg.Spans) != 2 {
		t.Fatalf("len(Spans) = %d, want 2", len(seg.Spans))
	}

	first := seg.Spans[0]
	if first.Index != 1 || first.Start != 0 || first.End != second {
		t.Errorf("span 1 = [%d %d) index %d, want [0 %d) index 1", first.Start, first.End, first.Index, second)
	}
	if first.Heading != "Глава 1 – Начало" {
		t.Errorf("span 1 heading = %q", first.Heading)
	}
	last := seg.Spans[1]
	if last.Index != 2 || last.Start != second || last.End != len(text) {
		t.Errorf("span 2 = [%d %d) index %d, want [%d %d) index 2", last.Start, last.End, last.Index, second, len(text))
	}
	if last.Text != "Глава 2 – Продолжение\nmore text" {
		t.Errorf("span 2 text = %q", last.Text)
	}
}

func TestSplit_StrategyPriority(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantStrategy string
		wantStarts   []int
	}{
		{
			name:         "markup wins over keyword lines",
			text:         "<h1>One</h1>\nГлава 1\n<h2 class=\"x\">Two <em>b</em>\n</h2>",
			wantStrategy: "markup-heading",
			wantStarts:   []int{0, len("<h1>One</h1>\nГлава 1\n")},
		},
		{
			name:         "case insensitive english",
			text:         "CHAPTER 1\na\nchapter 2 - b\nc",
			wantStrategy: "numbered-heading",
			wantStarts:   []int{0, 12},
		},
		{
			name:         "roman numerals",
			text:         "Часть I\nтекст\nЧасть II – Конец\nтекст",
			wantStrategy: "roman-heading",
			wantStarts:   []int{0, 24},
		},
		{
			name:         "keyword must start the line",
			text:         "intro\nsee Глава 1 here\nГлава 2\nend",
			wantStrategy: "numbered-heading",
			wantStarts:   []int{len("intro\nsee Глава 1 here\n")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := New().Split(tt.text)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if seg.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, want %q", seg.Strategy, tt.wantStrategy)
			}
			if len(seg.Spans) != len(tt.wantStarts) {
				t.Fatalf("len(Spans) = %d, want %d", len(seg.Spans), len(tt.wantStarts))
			}
			for i, start := range tt.wantStarts {
				if seg.Spans[i].Start != start {
					t.Errorf("Spans[%d].Start = %d, want %d", i, seg.Spans[i].Start, start)
				}
				if seg.Spans[i].Index != i+1 {
					t.Errorf("Spans[%d].Index = %d, want %d", i, seg.Spans[i].Index, i+1)
				}
			}
			if got := seg.Spans[len(seg.Spans)-1].End; got != len(tt.text) {
				t.Errorf("last End = %d, want %d", got, len(tt.text))
			}
		})
	}
}

func TestSplit_NoPattern(t *testing.T) {
	for _, text := range []string{"", "just some prose\nwithout headings", "Главная мысль 5"} {
		seg, err := New().Split(text)
		if !errors.Is(err, ErrNoChapterPattern) {
			t.Errorf("Split(%q) error = %v, want ErrNoChapterPattern", text, err)
		}
		if seg.Spans == nil || len(seg.Spans) != 0 {
			t.Errorf("Split(%q) spans = %#v, want empty non-nil", text, seg.Spans)
		}
		if got := Segment(text); len(got) != 0 {
			t.Errorf("Segment(%q) = %v, want empty", text, got)
		}
	}
}

func TestSegment_Idempotent(t *testing.T) {
	text := "Пролог 0\nx\nГлава 1\ny\nЭпилог 9 – конец\nz"
	a := Segment(text)
	b := Segment(text)
	if len(a) != 3 || len(a) != len(b) {
		t.Fatalf("len = %d and %d, want 3", len(a), len(b))
	}
	for i := range a {
		if a[i].Start != b[i].Start || a[i].End != b[i].End {
			t.Errorf("span %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

type fixedStrategy struct{ offsets []int }

func (f fixedStrategy) Name() string { return "fixed" }

func (f fixedStrategy) Boundaries(string) []Boundary {
	out := make([]Boundary, len(f.offsets))
	for i, o := range f.offsets {
		out[i] = Boundary{Offset: o}
	}
	return out
}

func TestSegmenter_CustomStrategies(t *testing.T) {
	s := New(fixedStrategy{}, fixedStrategy{offsets: []int{2, 5}})
	seg, err := s.Split("abcdefg")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(seg.Spans) != 2 || seg.Spans[0].Text != "cde" || seg.Spans[1].Text != "fg" {
		t.Fatalf("Spans = %+v", seg.Spans)
	}
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Глава 3", true},
		{"  КНИГА 2 - Путь", true},
		{"Часть XIV", true},
		{"глава iv", true},
		{"Book ii - Return", true},
		{"Chapter twelve", false},
		{"Главная", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHeading(tt.line); got != tt.want {
			t.Errorf("IsHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
