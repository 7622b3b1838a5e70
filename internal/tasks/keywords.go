package tasks

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuanying/epubinspect/internal/pipeline"
)

var ErrNoSearchTerm = errors.New("tasks: no search term given")

const (
	// MaxReportedMatches caps the match contexts kept in the payload.
	MaxReportedMatches = 5
	contextRunes       = 50
)

// KeywordSearch is the payload of search_keywords.
type KeywordSearch struct {
	Term       string   `json:"term" yaml:"term"`
	MatchCount int      `json:"match_count" yaml:"match_count"`
	Matches    []string `json:"matches" yaml:"matches"`
}

func (r *runner) searchKeywords(_ context.Context, src *pipeline.Source, _ any) (any, error) {
	m, err := newTermMatcher(r.opts.SearchTerm)
	if err != nil {
		return nil, err
	}
	text, err := src.Text()
	if err != nil {
		return nil, err
	}

	found := m.find(text)
	out := KeywordSearch{Term: m.term, MatchCount: len(found), Matches: []string{}}
	for _, loc := range found {
		if len(out.Matches) == MaxReportedMatches {
			break
		}
		out.Matches = append(out.Matches, matchContext(text, loc[0], loc[1], contextRunes))
	}
	return out, nil
}

// termMatcher finds whole-word, case-insensitive occurrences of a term.
type termMatcher struct {
	term string
	re   *regexp.Regexp
}

func newTermMatcher(term string) (*termMatcher, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrNoSearchTerm
	}
	return &termMatcher{term: term, re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))}, nil
}

func (m *termMatcher) find(text string) [][]int {
	var out [][]int
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if m.bounded(text, loc[0], loc[1]) {
			out = append(out, loc)
		}
	}
	return out
}

func (m *termMatcher) count(text string) int {
	return len(m.find(text))
}

// bounded reports whether text[start:end] is not glued to word characters.
func (m *termMatcher) bounded(text string, start, end int) bool {
	if start > 0 {
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		first, _ := utf8.DecodeRuneInString(text[start:end])
		if isWordRune(before) && isWordRune(first) {
			return false
		}
	}
	if end < len(text) {
		after, _ := utf8.DecodeRuneInString(text[end:])
		last, _ := utf8.DecodeLastRuneInString(text[start:end])
		if isWordRune(after) && isWordRune(last) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// matchContext returns the match with up to n runes on each side, with
// whitespace collapsed.
func matchContext(text string, start, end, n int) string {
	from := start
	for i := 0; i < n && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < n && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}
	return strings.Join(strings.Fields(text[from:to]), " ")
}
