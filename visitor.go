package typegrep

import (
	"go/ast"

	"github.com/jward/typegrep/internal/astkind"
)

// visitor walks one file and collects the expressions whose type matches.
type visitor struct {
	path    string
	unit    *Unit
	types   TypeMap
	query   string
	matches []*Match
}

// Visit walks unit's syntax tree in source order and returns every value
// expression whose type string equals query. An empty query matches every
// expression that has a type, labeled with that type. path is the name the
// caller used for the file and is carried into each Match unchanged.
func Visit(path string, unit *Unit, types TypeMap, query string) []*Match {
	if unit == nil || unit.Tree == nil {
		return nil
	}
	v := &visitor{path: path, unit: unit, types: types, query: query}
	ast.Inspect(unit.Tree, v.visit)
	return v.matches
}

func (v *visitor) visit(n ast.Node) bool {
	if n == nil {
		return false
	}
	// Every node is dispatched the same way; statements, declarations and
	// type expressions never carry a value and are only descended into.
	if kind := astkind.Of(n); kind.CarriesValue() {
		v.check(kind, n.(ast.Expr))
	}
	return true
}

func (v *visitor) check(kind NodeKind, expr ast.Expr) {
	typ, ok := v.types[expr]
	if !ok || typ == nil {
		return
	}
	canonical := typ.String()
	if v.query != "" && canonical != v.query {
		return
	}
	v.matches = append(v.matches, &Match{
		Path:  v.path,
		Unit:  v.unit,
		Node:  expr,
		Kind:  kind,
		Label: canonical,
	})
}
