package typegrep

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/typegrep/internal/engine"
)

// fakeBuilder type-checks the requested files as one dependency-free
// package with go/types, without go list or a cache.
type fakeBuilder struct {
	calls   int
	sources []string
	opts    engine.Options
	err     error
	// omit lists requested paths left out of the graph.
	omit map[string]bool
}

func (fb *fakeBuilder) Build(_ context.Context, sources []string, opts engine.Options) (*engine.Outcome, error) {
	fb.calls++
	fb.sources = sources
	fb.opts = opts
	if fb.err != nil {
		return nil, fb.err
	}

	out := &engine.Outcome{
		Fset:  token.NewFileSet(),
		Graph: make(map[string]*engine.Unit),
		Types: make(engine.TypeMap),
	}
	var files []*ast.File
	for _, src := range sources {
		file, err := parser.ParseFile(out.Fset, src, nil, parser.ParseComments)
		if err != nil {
			return nil, &engine.CompileError{Messages: []string{err.Error()}}
		}
		files = append(files, file)
		if fb.omit[src] {
			continue
		}
		id := engine.ModuleID(src)
		out.Graph[id] = &engine.Unit{Path: id, Package: "p", Tree: file, Requested: true}
	}

	info := &types.Info{Types: make(map[ast.Expr]types.TypeAndValue)}
	conf := types.Config{Error: func(err error) {
		out.Diagnostics = append(out.Diagnostics, engine.Diagnostic{Message: err.Error()})
	}}
	_, _ = conf.Check("p", out.Fset, files, info)
	for expr, tv := range info.Types {
		if tv.Type == nil || !tv.IsValue() {
			continue
		}
		if b, ok := tv.Type.(*types.Basic); ok && b.Kind() == types.Invalid {
			continue
		}
		out.Types[expr] = tv.Type
	}
	return out, nil
}

// writeSource writes a Go file into dir and returns its path.
func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// newFakeSearcher returns a Searcher backed by a fakeBuilder.
func newFakeSearcher(t *testing.T, opts ...Option) (*Searcher, *fakeBuilder) {
	t.Helper()
	fb := &fakeBuilder{}
	s, err := New(append([]Option{WithBuilder(fb)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, fb
}

// collect drains results and returns the matches with their locations.
func collect(t *testing.T, r *Results) ([]*Match, []Location) {
	t.Helper()
	var ms []*Match
	var locs []Location
	for m := range r.All() {
		ms = append(ms, m)
		locs = append(locs, m.Location(r.Fset()))
	}
	return ms, locs
}
