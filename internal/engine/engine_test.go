package engine

import (
	"context"
	"fmt"
	"go/ast"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGo(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
}

// writeModule creates a module example.com/m with the given files and
// returns its directory.
func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/m\n\ngo 1.21\n"), 0o644))
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newTestEngine(t *testing.T, dbPath string) *Engine {
	t.Helper()
	e, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func fullOptions(dir string) Options {
	return Options{ExportTypes: true, RetainTrees: true, Dir: dir}
}

// trackingHook returns a never-repeating fingerprint for its paths.
type trackingHook struct {
	paths map[string]bool
	calls atomic.Int64
	seq   atomic.Int64
}

func newTrackingHook(paths ...string) *trackingHook {
	h := &trackingHook{paths: make(map[string]bool)}
	for _, p := range paths {
		h.paths[ModuleID(p)] = true
	}
	return h
}

func (h *trackingHook) Fingerprint(path string) (string, bool) {
	h.calls.Add(1)
	if !h.paths[path] {
		return "", false
	}
	return fmt.Sprintf("tracked-%p-%d", h, h.seq.Add(1)), true
}

// typeOf returns the type string of the first expression of type T found in
// the unit's tree, or "" when it has none.
func typeOf[T ast.Expr](t *testing.T, out *Outcome, u *Unit) string {
	t.Helper()
	var found string
	ast.Inspect(u.Tree, func(n ast.Node) bool {
		if found != "" {
			return false
		}
		if e, ok := n.(T); ok {
			if typ, ok := out.Types[e]; ok {
				found = typ.String()
			}
		}
		return true
	})
	return found
}

// =============================================================================
// Build
// =============================================================================

func TestBuild_ExportsValueTypes(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{
		"a.go": "package m\n\nfunc foo() int { return 42 }\n\nfunc bar() string { return \"spam\" }\n",
		"b.go": "package m\n\ntype T struct{}\n\nvar X = T{}\n",
	})
	e := newTestEngine(t, "")

	out, err := e.Build(context.Background(), []string{filepath.Join(dir, "a.go")}, fullOptions(dir))
	require.NoError(t, err)

	a := out.Unit(filepath.Join(dir, "a.go"))
	require.NotNil(t, a)
	assert.True(t, a.Requested)
	assert.False(t, a.Cached)
	assert.Equal(t, "example.com/m", a.Package)
	require.NotNil(t, a.Tree)

	var got []string
	ast.Inspect(a.Tree, func(n ast.Node) bool {
		if lit, ok := n.(*ast.BasicLit); ok {
			got = append(got, out.Types[lit].String())
		}
		return true
	})
	assert.Equal(t, []string{"int", "string"}, got)

	// The rest of the package is analyzed too but not requested.
	b := out.Unit(filepath.Join(dir, "b.go"))
	require.NotNil(t, b)
	assert.False(t, b.Requested)
	assert.Equal(t, "example.com/m.T", typeOf[*ast.CompositeLit](t, out, b))
}

func TestBuild_TypeExpressionsAreNotExported(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{
		"a.go": "package m\n\nfunc f() {\n\tvar x []int\n\t_ = x\n\tprintln()\n}\n",
	})
	e := newTestEngine(t, "")

	out, err := e.Build(context.Background(), []string{filepath.Join(dir, "a.go")}, fullOptions(dir))
	require.NoError(t, err)
	u := out.Unit(filepath.Join(dir, "a.go"))
	require.NotNil(t, u)

	ast.Inspect(u.Tree, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.ArrayType:
			_, ok := out.Types[n]
			assert.False(t, ok, "type literal must not be exported")
		case *ast.CallExpr:
			_, ok := out.Types[n]
			assert.False(t, ok, "void call must not be exported")
		case *ast.Ident:
			if n.Name == "println" || n.Name == "int" {
				_, ok := out.Types[n]
				assert.False(t, ok, "%s must not be exported", n.Name)
			}
		}
		return true
	})
}

func TestBuild_OptionsControlExports(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{"a.go": "package m\n\nvar V = 1\n"})
	e := newTestEngine(t, "")

	out, err := e.Build(context.Background(), []string{filepath.Join(dir, "a.go")}, Options{Dir: dir})
	require.NoError(t, err)
	assert.Nil(t, out.Types)
	u := out.Unit(filepath.Join(dir, "a.go"))
	require.NotNil(t, u)
	assert.Nil(t, u.Tree)
}

func TestBuild_DuplicateSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	e := newTestEngine(t, "")

	_, err := e.Build(context.Background(), []string{path, path}, fullOptions(dir))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompile)
	assert.Contains(t, err.Error(), "duplicate module")
}

func TestBuild_SyntaxErrorIsFatal(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{"a.go": "package m\n\nfunc f( {\n"})
	e := newTestEngine(t, "")

	out, err := e.Build(context.Background(), []string{filepath.Join(dir, "a.go")}, fullOptions(dir))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompile)
	assert.Nil(t, out)
}

func TestBuild_TypeErrorsAreDiagnostics(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{
		"a.go": "package m\n\nvar S string = 1\n\nvar N = 2\n",
	})
	path := filepath.Join(dir, "a.go")
	e := newTestEngine(t, filepath.Join(t.TempDir(), "cache.db"))

	out, err := e.Build(context.Background(), []string{path}, fullOptions(dir))
	require.NoError(t, err)
	require.NotEmpty(t, out.Diagnostics)
	assert.Contains(t, out.Diagnostics[0].String(), "a.go:3")
	for _, d := range out.Diagnostics {
		assert.NotContains(t, d.Message, "# example.com/m", "compiler output is not a diagnostic")
	}

	// Diagnostics survive a cache hit.
	out, err = e.Build(context.Background(), []string{path}, fullOptions(dir))
	require.NoError(t, err)
	u := out.Unit(path)
	require.NotNil(t, u)
	assert.True(t, u.Cached)
	require.NotEmpty(t, out.Diagnostics)
	assert.Contains(t, out.Diagnostics[0].Message, "string")
}

func TestBuild_NoSources(t *testing.T) {
	e := newTestEngine(t, "")
	out, err := e.Build(context.Background(), nil, fullOptions(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, out.Graph)
}

// =============================================================================
// Incremental cache
// =============================================================================

func TestBuild_SecondBuildRestoresFromCache(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{"a.go": "package m\n\nvar V = int64(1)\n"})
	path := filepath.Join(dir, "a.go")
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	e := newTestEngine(t, dbPath)
	out, err := e.Build(context.Background(), []string{path}, fullOptions(dir))
	require.NoError(t, err)
	first := typeOf[*ast.CallExpr](t, out, out.Unit(path))
	require.Equal(t, "int64", first)
	require.NoError(t, e.Close())

	// A new engine over the same database still hits the cache.
	e2 := newTestEngine(t, dbPath)
	out, err = e2.Build(context.Background(), []string{path}, fullOptions(dir))
	require.NoError(t, err)
	u := out.Unit(path)
	require.NotNil(t, u)
	assert.True(t, u.Cached)
	assert.Equal(t, first, typeOf[*ast.CallExpr](t, out, u))
	assert.IsType(t, CachedType(""), out.Types[firstExpr[*ast.CallExpr](u.Tree)])
}

// TestBuild_HookDefeatsStaleCache edits a file without changing its size or
// modification time. The default freshness policy cannot see the edit and
// serves the old types; a hook that tracks the file forces reanalysis.
func TestBuild_HookDefeatsStaleCache(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{"a.go": "package m\n\nvar V = int64(1)\n"})
	path := filepath.Join(dir, "a.go")
	e := newTestEngine(t, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()

	out, err := e.Build(ctx, []string{path}, fullOptions(dir))
	require.NoError(t, err)
	require.Equal(t, "int64", typeOf[*ast.CallExpr](t, out, out.Unit(path)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("package m\n\nvar V = int32(1)\n"), 0o644))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	out, err = e.Build(ctx, []string{path}, fullOptions(dir))
	require.NoError(t, err)
	assert.True(t, out.Unit(path).Cached)
	assert.Equal(t, "int64", typeOf[*ast.CallExpr](t, out, out.Unit(path)), "default policy serves the cached analysis")

	opts := fullOptions(dir)
	hook := newTrackingHook(path)
	opts.Hook = hook
	out, err = e.Build(ctx, []string{path}, opts)
	require.NoError(t, err)
	assert.False(t, out.Unit(path).Cached)
	assert.Equal(t, "int32", typeOf[*ast.CallExpr](t, out, out.Unit(path)))
	assert.EqualValues(t, 1, hook.calls.Load(), "hook is consulted once per module")
}

func TestBuild_HookDefersForUntrackedModules(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{
		"a.go": "package m\n\nvar A = 1\n",
		"b.go": "package m\n\nvar B = 2\n",
	})
	a := filepath.Join(dir, "a.go")
	b := filepath.Join(dir, "b.go")
	e := newTestEngine(t, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()

	_, err := e.Build(ctx, []string{a}, fullOptions(dir))
	require.NoError(t, err)

	// Untracked a.go and b.go keep their stat fingerprints and stay cached.
	opts := fullOptions(dir)
	hook := newTrackingHook()
	opts.Hook = hook
	out, err := e.Build(ctx, []string{a}, opts)
	require.NoError(t, err)
	assert.True(t, out.Unit(a).Cached)
	assert.True(t, out.Unit(b).Cached)
	assert.EqualValues(t, 2, hook.calls.Load())
}

func TestBuild_LocalDependenciesAreCached(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{
		"a.go":   "package m\n\nimport \"example.com/m/p\"\n\nvar V = p.N()\n",
		"p/p.go": "package p\n\nfunc N() int { return 1 }\n",
	})
	a := filepath.Join(dir, "a.go")
	dep := filepath.Join(dir, "p", "p.go")
	e := newTestEngine(t, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()

	for run := range 2 {
		opts := fullOptions(dir)
		opts.Hook = newTrackingHook(a)
		out, err := e.Build(ctx, []string{a}, opts)
		require.NoError(t, err)

		ua := out.Unit(a)
		require.NotNil(t, ua)
		assert.False(t, ua.Cached, "run %d: tracked source is always checked", run)
		assert.Equal(t, "int", typeOf[*ast.CallExpr](t, out, ua))

		up := out.Unit(dep)
		require.NotNil(t, up, "run %d: imported package of the module is in the graph", run)
		assert.False(t, up.Requested)
		assert.Equal(t, "example.com/m/p", up.Package)
		assert.Equal(t, run > 0, up.Cached, "run %d", run)
		assert.Equal(t, "int", typeOf[*ast.BasicLit](t, out, up))
	}
}

func TestBuild_StandardLibraryIsNotInGraph(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{
		"a.go": "package m\n\nimport \"strings\"\n\nvar V = strings.ToUpper(\"x\")\n",
	})
	e := newTestEngine(t, "")

	out, err := e.Build(context.Background(), []string{filepath.Join(dir, "a.go")}, fullOptions(dir))
	require.NoError(t, err)
	assert.Len(t, out.Graph, 1)
}

func TestBuild_ConfigChangeInvalidatesCache(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{"a.go": "package m\n\nvar V = 1\n"})
	path := filepath.Join(dir, "a.go")
	e := newTestEngine(t, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()

	_, err := e.Build(ctx, []string{path}, fullOptions(dir))
	require.NoError(t, err)

	opts := fullOptions(dir)
	opts.BuildFlags = []string{"-tags=extra"}
	out, err := e.Build(ctx, []string{path}, opts)
	require.NoError(t, err)
	assert.False(t, out.Unit(path).Cached)
}

func TestBuild_WithoutCache(t *testing.T) {
	requireGo(t)
	dir := writeModule(t, map[string]string{"a.go": "package m\n\nvar V = 1\n"})
	path := filepath.Join(dir, "a.go")
	e, err := New("", WithoutCache())
	require.NoError(t, err)
	defer e.Close()

	for range 2 {
		out, err := e.Build(context.Background(), []string{path}, fullOptions(dir))
		require.NoError(t, err)
		assert.False(t, out.Unit(path).Cached)
	}
}

func firstExpr[T ast.Expr](root ast.Node) ast.Expr {
	var found ast.Expr
	ast.Inspect(root, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		if e, ok := n.(T); ok {
			found = e
		}
		return true
	})
	return found
}
