package epub

import "testing"

func TestExtractText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "paragraphs become lines",
			input: `<html><head><title>x</title><style>p{}</style></head><body><h1>Глава 1</h1><p>One  two</p><p>three&amp;four</p></body></html>`,
			want:  "Глава 1\nOne two\nthree&four",
		},
		{
			name:  "script dropped",
			input: `<div>a<script>var x = "<p>";</script>b</div>`,
			want:  "ab",
		},
		{
			name:  "inline elements join",
			input: `<p>a <b>bold</b> <i>it</i></p>`,
			want:  "a bold it",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.input); got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBodyMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "with body", input: `<html><BODY class="x"><p>a</p></BODY></html>`, want: `<p>a</p>`},
		{name: "without body", input: `<p>a</p>`, want: `<p>a</p>`},
		{name: "unterminated body", input: `<body><p>a</p>`, want: `<p>a</p>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BodyMarkup(tt.input); got != tt.want {
				t.Errorf("BodyMarkup() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"OEBPS", "text/ch1.xhtml", "OEBPS/text/ch1.xhtml"},
		{"OEBPS/text", "../images/a.png", "OEBPS/images/a.png"},
		{"", "ch1.xhtml", "ch1.xhtml"},
		{"OEBPS", `text\ch1.xhtml`, "OEBPS/text/ch1.xhtml"},
		{"OEBPS", "./ch1.xhtml", "OEBPS/ch1.xhtml"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			if got := resolvePath(tt.base, tt.href); got != tt.want {
				t.Errorf("resolvePath(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
			}
		})
	}
}

func TestSplitFragment(t *testing.T) {
	p, frag := splitFragment("text/ch1.xhtml#sec")
	if p != "text/ch1.xhtml" || frag != "sec" {
		t.Fatalf("splitFragment() = (%q, %q)", p, frag)
	}
	if got := StripFragment("a.xhtml"); got != "a.xhtml" {
		t.Fatalf("StripFragment() = %q", got)
	}
}
