// Package chapters splits book text into chapter spans using an ordered
// list of heading detection strategies.
package chapters

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoChapterPattern reports that no strategy found a chapter boundary.
// It is informational: the accompanying segmentation is empty and valid.
var ErrNoChapterPattern = errors.New("chapters: no chapter heading pattern matched")

// keywords is the heading vocabulary shared by the line-oriented strategies.
const keywords = `глава|книга|часть|пролог|эпилог|chapter|book|part|prologue|epilogue`

var (
	markupHeadingRe   = regexp.MustCompile(`(?is)<h[1-6]\b[^>]*>.*?</h[1-6]\s*>`)
	numberedHeadingRe = regexp.MustCompile(`(?im)^[ \t]*(?:` + keywords + `)[ \t]*\d+[ \t]*[–-]?[^\n]*`)
	romanHeadingRe    = regexp.MustCompile(`(?im)^[ \t]*(?:` + keywords + `)[ \t]*[IVXLCDM]+\b[ \t]*[–-]?[^\n]*`)
)

// Boundary marks the start of a chapter heading.
type Boundary struct {
	Offset  int
	Heading string
}

// Strategy finds chapter boundaries in text, in ascending offset order.
type Strategy interface {
	Name() string
	Boundaries(text string) []Boundary
}

// regexpStrategy treats every match of re as a boundary at the match start.
type regexpStrategy struct {
	name string
	re   *regexp.Regexp
}

func (s regexpStrategy) Name() string { return s.name }

func (s regexpStrategy) Boundaries(text string) []Boundary {
	locs := s.re.FindAllStringIndex(text, -1)
	out := make([]Boundary, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Boundary{
			Offset:  loc[0],
			Heading: strings.TrimSpace(text[loc[0]:loc[1]]),
		})
	}
	return out
}

// MarkupHeadings matches h1-h6 elements, including nested markup and line breaks.
func MarkupHeadings() Strategy {
	return regexpStrategy{name: "markup-heading", re: markupHeadingRe}
}

// NumberedHeadings matches lines such as "Глава 1 – Начало" or "Chapter 12".
func NumberedHeadings() Strategy {
	return regexpStrategy{name: "numbered-heading", re: numberedHeadingRe}
}

// RomanHeadings matches lines such as "Часть IV" or "Book II - Return".
func RomanHeadings() Strategy {
	return regexpStrategy{name: "roman-heading", re: romanHeadingRe}
}

// DefaultStrategies returns the strategies in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{MarkupHeadings(), NumberedHeadings(), RomanHeadings()}
}

// Span is one chapter. Start and End are byte offsets into the segmented
// text, End exclusive. Index is the 1-based position among the spans.
type Span struct {
	Index   int
	Start   int
	End     int
	Heading string
	Text    string
}

// Segmentation is the result of Split.
type Segmentation struct {
	Strategy string // name of the strategy that produced the spans, "" if none
	Spans    []Span
}

// Segmenter tries its strategies in order and keeps the first one with a match.
type Segmenter struct {
	Strategies []Strategy
}

// New returns a Segmenter using strategies, or DefaultStrategies when none are given.
func New(strategies ...Strategy) *Segmenter {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Segmenter{Strategies: strategies}
}

// Split segments text. When no strategy matches it returns an empty
// segmentation together with ErrNoChapterPattern.
func (s *Segmenter) Split(text string) (Segmentation, error) {
	for _, st := range s.Strategies {
		bounds := st.Boundaries(text)
		if len(bounds) == 0 {
			continue
		}
		return Segmentation{Strategy: st.Name(), Spans: spansFrom(text, bounds)}, nil
	}
	return Segmentation{Spans: []Span{}}, ErrNoChapterPattern
}

// Segment is Split without the informational error.
func (s *Segmenter) Segment(text string) []Span {
	seg, _ := s.Split(text)
	return seg.Spans
}

// Segment splits text with the default strategies.
func Segment(text string) []Span {
	return New().Segment(text)
}

// spansFrom pairs each boundary with the next one; the last span runs to
// the end of text. Text before the first boundary belongs to no span.
func spansFrom(text string, bounds []Boundary) []Span {
	spans := make([]Span, len(bounds))
	for i, b := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1].Offset
		}
		spans[i] = Span{
			Index:   i + 1,
			Start:   b.Offset,
			End:     end,
			Heading: b.Heading,
			Text:    text[b.Offset:end],
		}
	}
	return spans
}

// IsHeading reports whether line is a keyword heading, numbered or roman.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	return numberedHeadingRe.MatchString(line) || romanHeadingRe.MatchString(line)
}
