package tasks

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/yuanying/epubinspect/internal/pipeline"
)

// StyleProcessing is the payload of process_styles.
type StyleProcessing struct {
	TotalStyles   int         `json:"total_styles" yaml:"total_styles"`
	OriginalSize  int         `json:"original_size" yaml:"original_size"`
	OptimizedSize int         `json:"optimized_size" yaml:"optimized_size"`
	Files         []StyleFile `json:"files" yaml:"files"`
}

type StyleFile struct {
	Path          string `json:"path" yaml:"path"`
	Output        string `json:"output,omitempty" yaml:"output,omitempty"`
	OriginalSize  int    `json:"original_size" yaml:"original_size"`
	OptimizedSize int    `json:"optimized_size" yaml:"optimized_size"`
}

func (r *runner) processStyles(_ context.Context, src *pipeline.Source, _ any) (any, error) {
	pkg, err := src.RequirePackage()
	if err != nil {
		return nil, err
	}

	out := StyleProcessing{Files: []StyleFile{}}
	used := make(map[string]bool)
	for _, item := range pkg.ItemsByMediaType(func(mt string) bool { return mt == "text/css" }) {
		raw, err := src.Archive.ReadFile(item.Href)
		if err != nil {
			src.Logger.Warn("stylesheet listed in manifest but not readable, skipping", "path", item.Href, "err", err)
			continue
		}
		css, _, err := src.Archive.ReadText(item.Href)
		if err != nil {
			src.Logger.Warn("failed to decode stylesheet, skipping", "path", item.Href, "err", err)
			continue
		}

		minified := MinifyCSS(css)
		f := StyleFile{Path: item.Href, OriginalSize: len(raw), OptimizedSize: len(minified)}
		if r.opts.Output != nil {
			f.Output, err = r.writeOutput("styles/"+uniqueName(path.Base(item.Href), used), []byte(minified))
			if err != nil {
				return nil, err
			}
		}
		out.Files = append(out.Files, f)
		out.OriginalSize += f.OriginalSize
		out.OptimizedSize += f.OptimizedSize
	}
	out.TotalStyles = len(out.Files)
	return out, nil
}

// MinifyCSS strips comments, collapses whitespace, removes whitespace
// around braces and semicolons, and drops the semicolon before a closing
// brace. Colons lose their surrounding whitespace only inside declaration
// blocks, where a space before a pseudo-class selector would matter.
// String literals are copied unchanged.
func MinifyCSS(css string) string {
	out := make([]byte, 0, len(css))
	pendingSpace := false

	// blocks holds one entry per open brace, true for declaration blocks.
	var blocks []bool
	preludeStart := 0
	inDecl := func() bool { return len(blocks) > 0 && blocks[len(blocks)-1] }

	for i := 0; i < len(css); {
		ch := css[i]

		if ch == '/' && i+1 < len(css) && css[i+1] == '*' {
			end := strings.Index(css[i+2:], "*/")
			if end == -1 {
				break
			}
			i += 2 + end + 2
			continue
		}

		if isCSSSpace(ch) {
			pendingSpace = true
			i++
			continue
		}

		if isCSSPunct(ch, inDecl()) {
			pendingSpace = false
			switch ch {
			case '{':
				blocks = append(blocks, !isGroupingRule(out[min(preludeStart, len(out)):]))
			case '}':
				if len(out) > 0 && out[len(out)-1] == ';' {
					out = out[:len(out)-1]
				}
				if len(blocks) > 0 {
					blocks = blocks[:len(blocks)-1]
				}
			}
			out = append(out, ch)
			if ch != ':' {
				preludeStart = len(out)
			}
			i++
			continue
		}

		if pendingSpace && len(out) > 0 && !isCSSPunct(out[len(out)-1], inDecl()) {
			out = append(out, ' ')
		}
		pendingSpace = false

		if ch == '"' || ch == '\'' {
			end := stringLiteralEnd(css, i)
			out = append(out, css[i:end]...)
			i = end
			continue
		}
		out = append(out, ch)
		i++
	}
	return string(out)
}

// isGroupingRule reports whether a block prelude opens an at-rule whose
// body holds rules rather than declarations.
func isGroupingRule(prelude []byte) bool {
	p := strings.ToLower(string(bytes.TrimSpace(prelude)))
	for _, kw := range []string{"@media", "@supports", "@document", "@layer", "@container", "@-moz-document"} {
		if strings.HasPrefix(p, kw) {
			return true
		}
	}
	return false
}

// stringLiteralEnd returns the position after the string literal opened at pos.
func stringLiteralEnd(css string, pos int) int {
	quote := css[pos]
	for i := pos + 1; i < len(css); i++ {
		if css[i] == '\\' {
			i++
			continue
		}
		if css[i] == quote {
			return i + 1
		}
	}
	return len(css)
}

func isCSSPunct(ch byte, inDecl bool) bool {
	return ch == '{' || ch == '}' || ch == ';' || (inDecl && ch == ':')
}

func isCSSSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}
