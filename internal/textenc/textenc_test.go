package textenc

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func encodeCP1251(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.Windows1251.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return b
}

func TestDecode_DefaultOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantText string
		wantEnc  string
	}{
		{
			name:     "ascii is utf-8",
			input:    []byte("hello"),
			wantText: "hello",
			wantEnc:  "utf-8",
		},
		{
			name:     "cyrillic utf-8",
			input:    []byte("Глава 1"),
			wantText: "Глава 1",
			wantEnc:  "utf-8",
		},
		{
			name:     "utf-8 with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("<x/>")...),
			wantText: "<x/>",
			wantEnc:  "utf-8",
		},
		{
			name:     "empty input",
			input:    []byte{},
			wantText: "",
			wantEnc:  "utf-8",
		},
		{
			name:     "cp1251 cyrillic",
			input:    encodeCP1251(t, "Привет, мир"),
			wantText: "Привет, мир",
			wantEnc:  "cp1251",
		},
		{
			// 0x98 is undefined in windows-1251 and must fall through to latin1.
			name:     "byte undefined in cp1251",
			input:    []byte{0x41, 0x98, 0xFF},
			wantText: "A\u0098ÿ",
			wantEnc:  "latin1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			text, enc, err := d.Decode(tt.input)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if enc != tt.wantEnc {
				t.Errorf("encoding = %q, want %q", enc, tt.wantEnc)
			}
		})
	}
}

func TestDecode_Deterministic(t *testing.T) {
	input := encodeCP1251(t, "Часть вторая")
	text1, enc1, err1 := Decode(input, DefaultCandidates)
	text2, enc2, err2 := Decode(input, DefaultCandidates)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if text1 != text2 || enc1 != enc2 {
		t.Fatalf("results differ: (%q, %q) vs (%q, %q)", text1, enc1, text2, enc2)
	}
}

func TestDecode_Exhausted(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
	}{
		{name: "empty list", candidates: []string{}},
		{name: "utf-8 only", candidates: []string{"utf-8"}},
		{name: "unknown name", candidates: []string{"no-such-encoding"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte{0xC3, 0x28}, tt.candidates)
			if !errors.Is(err, ErrDecodeExhausted) {
				t.Fatalf("error = %v, want ErrDecodeExhausted", err)
			}
		})
	}
}

func TestDecode_UnknownNameSkipped(t *testing.T) {
	text, enc, err := Decode([]byte("abc"), []string{"no-such-encoding", "UTF-8"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if text != "abc" || enc != "UTF-8" {
		t.Fatalf("got (%q, %q)", text, enc)
	}
}

func TestDecode_IANAFallback(t *testing.T) {
	input, err := charmap.KOI8R.NewEncoder().Bytes([]byte("мир"))
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	text, enc, err := Decode(input, []string{"KOI8-R"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if text != "мир" || enc != "KOI8-R" {
		t.Fatalf("got (%q, %q)", text, enc)
	}
}
