package tasks

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuanying/epubinspect/internal/lang"
	"github.com/yuanying/epubinspect/internal/pipeline"
)

const topWordsLimit = 10

var (
	wordRe          = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	letterWordRe    = regexp.MustCompile(`\p{L}+`)
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
)

// TextAnalysis is the payload of analyze_text.
type TextAnalysis struct {
	WordCount       int         `json:"word_count" yaml:"word_count"`
	CharCount       int         `json:"char_count" yaml:"char_count"`
	SentenceCount   int         `json:"sentence_count" yaml:"sentence_count"`
	ParagraphCount  int         `json:"paragraph_count" yaml:"paragraph_count"`
	SearchTerm      string      `json:"search_term,omitempty" yaml:"search_term,omitempty"`
	SearchFrequency int         `json:"search_frequency" yaml:"search_frequency"`
	TopWords        []WordCount `json:"top_words" yaml:"top_words"`
	Language        string      `json:"language,omitempty" yaml:"language,omitempty"`
}

type WordCount struct {
	Word  string `json:"word" yaml:"word"`
	Count int    `json:"count" yaml:"count"`
}

func (r *runner) analyzeText(_ context.Context, src *pipeline.Source, _ any) (any, error) {
	text, err := src.Text()
	if err != nil {
		return nil, err
	}

	out := AnalyzeText(text)
	if m, err := newTermMatcher(r.opts.SearchTerm); err == nil {
		out.SearchTerm = m.term
		out.SearchFrequency = m.count(text)
	}
	if code, ok := lang.Detect(text); ok {
		out.Language = code
	}
	return out, nil
}

// AnalyzeText computes counts and word frequencies of plain text.
func AnalyzeText(text string) TextAnalysis {
	out := TextAnalysis{
		WordCount:      len(wordRe.FindAllStringIndex(text, -1)),
		CharCount:      utf8.RuneCountInString(text),
		SentenceCount:  countNonBlank(sentenceSplitRe.Split(text, -1)),
		ParagraphCount: countNonBlank(strings.Split(text, "\n\n")),
		TopWords:       topWords(text, topWordsLimit),
	}
	return out
}

func countNonBlank(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// topWords returns the most frequent letter-only words longer than two
// runes, most frequent first, ties alphabetical.
func topWords(text string, limit int) []WordCount {
	freq := make(map[string]int)
	for _, w := range letterWordRe.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) > 2 {
			freq[w]++
		}
	}
	words := make([]WordCount, 0, len(freq))
	for w, c := range freq {
		words = append(words, WordCount{Word: w, Count: c})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}
