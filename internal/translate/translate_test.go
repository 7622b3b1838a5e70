package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/vertexai/genai"

	"github.com/yuanying/epubinspect/internal/epubtest"
)

func TestUnconfigured(t *testing.T) {
	var tr Translator = Unconfigured{}

	got, err := tr.Translate(context.Background(), "hello", "en", "en-US")
	if err != nil || got != "hello" {
		t.Fatalf("Translate(same language) = (%q, %v)", got, err)
	}

	_, err = tr.Translate(context.Background(), "привет", "ru", "en")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Translate() error = %v, want ErrNotConfigured", err)
	}
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("no credentials")
	var tr Translator = Unavailable{Backend: "vertex:gemini", Err: cause}
	if tr.Name() != "vertex:gemini" {
		t.Errorf("Name() = %q", tr.Name())
	}
	if _, err := tr.Translate(context.Background(), "a", "en", "en"); !errors.Is(err, cause) {
		t.Fatalf("Translate() error = %v, want setup error", err)
	}
}

func TestSameLanguage(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"en", "en", true},
		{"EN", "en-GB", true},
		{"pt_BR", "pt", true},
		{"ru", "en", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := SameLanguage(tt.a, tt.b); got != tt.want {
			t.Errorf("SameLanguage(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestExcerpt(t *testing.T) {
	markup := epubtest.Chapter("Глава 1 – Начало", strings.Repeat("Слово ", 400))

	got := Excerpt("OEBPS/text/ch1.xhtml", markup, DefaultExcerptRunes)
	if n := len([]rune(got)); n != DefaultExcerptRunes {
		t.Fatalf("len(Excerpt) = %d runes, want %d", n, DefaultExcerptRunes)
	}
	if !strings.Contains(got, "Слово") {
		t.Fatalf("Excerpt() = %q", got[:80])
	}

	short := Excerpt("ch.xhtml", epubtest.Chapter("Title", "Short body."), DefaultExcerptRunes)
	if !strings.Contains(short, "Short body.") {
		t.Fatalf("Excerpt(short) = %q", short)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(" Chapter one. "), genai.Text("It begins.")}},
		}},
	}
	got, n := responseText(resp)
	if got != "Chapter one. It begins." || n != 2 {
		t.Fatalf("responseText() = (%q, %d)", got, n)
	}
	if got, n := responseText(nil); got != "" || n != 0 {
		t.Fatalf("responseText(nil) = (%q, %d)", got, n)
	}
}

func TestLooksLikeRefusal(t *testing.T) {
	if !looksLikeRefusal("As a large language model, I cannot") {
		t.Fatal("refusal not detected")
	}
	if looksLikeRefusal("The war began in spring.") {
		t.Fatal("false refusal")
	}
}
