// Package translate turns a chapter excerpt into another language.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConfigured = errors.New("translate: no translation backend configured")
	ErrEmptyText     = errors.New("translate: nothing to translate")
	ErrRefused       = errors.New("translate: backend refused the request")
)

// Translator translates text between languages given as ISO 639-1 codes.
// from may be empty when the source language is unknown.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Unconfigured is the Translator used when no backend was set up. It only
// succeeds when no translation is needed.
type Unconfigured struct{}

func (Unconfigured) Name() string { return "none" }

func (Unconfigured) Translate(_ context.Context, text, from, to string) (string, error) {
	if SameLanguage(from, to) {
		return text, nil
	}
	return "", fmt.Errorf("%w (set --vertex-project to enable Vertex AI)", ErrNotConfigured)
}

// SameLanguage reports whether two language tags name the same base language.
func SameLanguage(a, b string) bool {
	a, b = baseLanguage(a), baseLanguage(b)
	return a != "" && a == b
}

func baseLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot provide",
	"as a large language model",
}

func looksLikeRefusal(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range refusalPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Unavailable stands in for a backend whose client could not be created.
// Every call fails with the setup error.
type Unavailable struct {
	Backend string
	Err     error
}

func (u Unavailable) Name() string { return u.Backend }

func (u Unavailable) Translate(context.Context, string, string, string) (string, error) {
	return "", fmt.Errorf("translate: %s unavailable: %w", u.Backend, u.Err)
}
