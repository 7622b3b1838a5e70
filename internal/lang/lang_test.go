package lang

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "russian", text: "Это первая глава книги. Книга рассказывает о далёкой стране и её людях.", want: "ru", wantOK: true},
		{name: "english", text: "This is the first chapter of the book. It tells the story of a distant country.", want: "en", wantOK: true},
		{name: "blank", text: "   \n\t", want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Detect() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSample(t *testing.T) {
	long := strings.Repeat("я", maxSample+10)
	if got := sample(long); len([]rune(got)) != maxSample {
		t.Fatalf("sample() kept %d runes, want %d", len([]rune(got)), maxSample)
	}
	if got := sample("short"); got != "short" {
		t.Fatalf("sample() = %q", got)
	}
}
