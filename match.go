package typegrep

import (
	"fmt"
	"go/ast"
	"go/token"
)

// Match is one expression whose type equals the query.
type Match struct {
	// Path is the file as the caller named it.
	Path string
	Unit *Unit
	Node ast.Expr
	Kind NodeKind
	// Label is the query, or the expression's own type string for an empty
	// query.
	Label string
}

// Location is a match position. Lines and columns are 1-based; columns
// count bytes. EndColumn is exclusive.
type Location struct {
	File      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Location resolves the match against fset. A node without a known end is
// treated as a single-line node one column wide.
func (m *Match) Location(fset *token.FileSet) Location {
	start := fset.Position(m.Node.Pos())
	loc := Location{
		File:      m.Path,
		Line:      start.Line,
		Column:    start.Column,
		EndLine:   start.Line,
		EndColumn: start.Column + 1,
	}
	if end := m.Node.End(); end.IsValid() {
		p := fset.Position(end)
		if p.Line > start.Line || (p.Line == start.Line && p.Column > start.Column) {
			loc.EndLine = p.Line
			loc.EndColumn = p.Column
		}
	}
	return loc
}

// MultiLine reports whether the location spans more than one line.
func (l Location) MultiLine() bool {
	return l.EndLine > l.Line
}
