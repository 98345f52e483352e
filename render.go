package typegrep

import (
	"context"
	"go/token"
	"strings"

	"github.com/jward/typegrep/internal/ansi"
)

// Renderer formats matches as text:
//
//	main.go:3:25
//	                        int (BasicLit)
//	                        v
//	func foo() int { return 42 }
//
// The second and third lines are indented so the label and the arrow sit
// above the match column. Tabs in the source are kept in the indent so the
// alignment holds at any tab width.
type Renderer struct {
	fset     *token.FileSet
	color    bool
	snippets *snippets
}

// NewRenderer returns a Renderer for matches positioned in fset. With color
// set, the matched span on the first snippet line is printed in green.
func NewRenderer(fset *token.FileSet, color bool) *Renderer {
	return &Renderer{fset: fset, color: color, snippets: newSnippets()}
}

// Render formats m. The result has no trailing newline.
func (r *Renderer) Render(ctx context.Context, m *Match) (string, error) {
	loc := m.Location(r.fset)
	snippet, err := r.snippets.text(ctx, m.Unit.Path, m.Node, loc.Line, loc.EndLine)
	if err != nil {
		return "", err
	}

	first, rest, multi := strings.Cut(snippet, "\n")
	col0 := loc.Column - 1
	indent := indentFor(first, col0)

	if r.color {
		end0 := col0 + 1
		switch {
		case loc.MultiLine():
			end0 = len(first)
		case loc.EndColumn > loc.Column:
			end0 = loc.EndColumn - 1
		}
		first = highlight(first, col0, end0)
	}

	var b strings.Builder
	b.WriteString(loc.String())
	b.WriteByte('\n')
	b.WriteString(indent)
	b.WriteString(m.Label)
	b.WriteString(" (")
	b.WriteString(m.Kind.String())
	b.WriteString(")\n")
	b.WriteString(indent)
	b.WriteString("v\n")
	b.WriteString(first)
	if multi {
		b.WriteByte('\n')
		b.WriteString(rest)
	}
	return b.String(), nil
}

// indentFor returns the prefix that puts text at byte column col0 of line.
func indentFor(line string, col0 int) string {
	var b strings.Builder
	for i := 0; i < col0; i++ {
		if i < len(line) && line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// highlight colors line[start:end], clamped to the line.
func highlight(line string, start, end int) string {
	end = min(end, len(line))
	if start < 0 || start >= end {
		return line
	}
	return line[:start] + ansi.FG(ansi.Green, line[start:end]) + line[end:]
}
