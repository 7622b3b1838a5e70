// Package textenc decodes archive entries whose character encoding is not
// declared reliably, by trying an ordered list of candidate encodings.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// DefaultCandidates is the order used when a Decoder has no explicit list.
var DefaultCandidates = []string{"utf-8", "cp1251", "windows-1251", "latin1"}

var (
	ErrDecodeExhausted     = errors.New("textenc: no candidate encoding could decode the input")
	ErrUnknownEncoding     = errors.New("textenc: unknown encoding")
	errUndefinedCharacters = errors.New("textenc: input contains bytes undefined in the encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decoder converts raw bytes to text using the first candidate that succeeds.
// The zero value uses DefaultCandidates.
type Decoder struct {
	Candidates []string
}

// New returns a Decoder that tries candidates in the given order.
func New(candidates ...string) *Decoder {
	return &Decoder{Candidates: candidates}
}

// Decode returns the decoded text and the name of the candidate that produced it.
func (d *Decoder) Decode(b []byte) (string, string, error) {
	candidates := DefaultCandidates
	if d != nil && d.Candidates != nil {
		candidates = d.Candidates
	}
	return Decode(b, candidates)
}

// Decode tries each candidate in order. It returns ErrDecodeExhausted when
// none succeeds, including when candidates is empty.
func Decode(b []byte, candidates []string) (string, string, error) {
	if len(candidates) == 0 {
		return "", "", fmt.Errorf("%w: empty candidate list", ErrDecodeExhausted)
	}
	var errs []error
	for _, name := range candidates {
		text, err := decodeAs(b, name)
		if err == nil {
			return text, name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return "", "", fmt.Errorf("%w: %w", ErrDecodeExhausted, errors.Join(errs...))
}

func decodeAs(b []byte, name string) (string, error) {
	switch normalizeName(name) {
	case "utf8":
		return decodeUTF8(b)
	case "cp1251", "windows1251":
		return decodeSingleByte(b, charmap.Windows1251)
	case "latin1", "iso88591", "l1":
		return decodeSingleByte(b, charmap.ISO8859_1)
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	if cm, ok := enc.(*charmap.Charmap); ok {
		return decodeSingleByte(b, cm)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.ContainsRune(b, utf8.RuneError) {
		return "", errUndefinedCharacters
	}
	return string(out), nil
}

func decodeUTF8(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	out, _, err := transform.Bytes(encoding.UTF8Validator, b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeSingleByte rejects input containing bytes the code page leaves
// undefined, which the charmap decoder would otherwise map to U+FFFD.
func decodeSingleByte(b []byte, cm *charmap.Charmap) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		r := cm.DecodeByte(c)
		if r == utf8.RuneError {
			return "", errUndefinedCharacters
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

// normalizeName lower-cases a label and drops separators so that
// "UTF-8", "utf8" and "Windows_1251" compare equal to the built-in names.
func normalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, name)
}
