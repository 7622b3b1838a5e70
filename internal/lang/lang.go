// Package lang detects the natural language of book text.
package lang

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// Languages are the candidates the detector chooses from.
var Languages = []lingua.Language{
	lingua.English,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Belarusian,
	lingua.Bulgarian,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Polish,
	lingua.Japanese,
	lingua.Chinese,
}

// maxSample bounds the runes handed to the detector.
const maxSample = 4000

var detector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(Languages...).
		Build()
})

// Detect returns the ISO 639-1 code of the language of text, lower case.
// ok is false when text is blank or no language is reliable.
func Detect(text string) (code string, ok bool) {
	text = strings.TrimSpace(sample(text))
	if text == "" {
		return "", false
	}
	l, ok := detector().DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(l.IsoCode639_1().String()), true
}

func sample(text string) string {
	if utf8.RuneCountInString(text) <= maxSample {
		return text
	}
	n := 0
	for i := range text {
		if n == maxSample {
			return text[:i]
		}
		n++
	}
	return text
}
