// Package sources turns command-line paths into the Go files to search and
// finds the module they belong to.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"golang.org/x/mod/modfile"

	"github.com/jward/typegrep"
)

// Expander expands directories into Go files.
type Expander struct {
	fs    afs.Service
	tests bool
}

// NewExpander returns an Expander. With tests set, _test.go files found in
// directories are included.
func NewExpander(tests bool) *Expander {
	return &Expander{fs: afs.New(), tests: tests}
}

// Expand returns the files named by paths in order. Files are passed through
// unchanged; directories are walked recursively and contribute their Go
// files in lexical order. Hidden, vendor and testdata directories are
// skipped, as are nested modules. A missing path is a
// *typegrep.PathNotFoundError.
func (e *Expander) Expand(ctx context.Context, paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &typegrep.PathNotFoundError{Path: p}
		}
		if err != nil {
			return nil, fmt.Errorf("sources: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		files, err := e.walk(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

func (e *Expander) walk(ctx context.Context, root string) ([]string, error) {
	var files []string
	nested := make(map[string]bool) // parent dirs holding their own go.mod

	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return true, nil
		}
		if info.Name() == "go.mod" && parent != "" {
			nested[parent] = true
			return true, nil
		}
		if skipDir(parent) || !e.wants(info.Name()) {
			return true, nil
		}
		files = append(files, filepath.Join(parent, info.Name()))
		return true, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}
	if err := e.fs.Walk(ctx, abs, visitor); err != nil {
		return nil, fmt.Errorf("sources: walk %s: %w", root, err)
	}

	var out []string
	for _, rel := range files {
		if inNested(rel, nested) {
			continue
		}
		out = append(out, filepath.Join(root, rel))
	}
	sort.Strings(out)
	return out, nil
}

func (e *Expander) wants(name string) bool {
	if !strings.HasSuffix(name, ".go") || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return false
	}
	return e.tests || !strings.HasSuffix(name, "_test.go")
}

// skipDir reports whether a relative directory is one the go command
// ignores.
func skipDir(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "vendor" || part == "testdata" || strings.HasPrefix(part, ".") || strings.HasPrefix(part, "_") {
			return true
		}
	}
	return false
}

func inNested(rel string, nested map[string]bool) bool {
	for dir := filepath.Dir(rel); dir != "." && dir != "/" && dir != ""; dir = filepath.Dir(dir) {
		if nested[dir] {
			return true
		}
	}
	return false
}

// Module is a Go module on disk.
type Module struct {
	// Root is the directory holding go.mod.
	Root string
	// Path is the module path declared in go.mod.
	Path string
}

// FindModule walks up from start to the nearest go.mod. It returns nil when
// start is not inside a module.
func FindModule(ctx context.Context, start string) (*Module, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	service := afs.New()
	for {
		goMod := filepath.Join(dir, "go.mod")
		if ok, _ := service.Exists(ctx, goMod); ok {
			content, err := service.DownloadWithURL(ctx, goMod)
			if err != nil {
				return nil, fmt.Errorf("sources: read %s: %w", goMod, err)
			}
			f, err := modfile.ParseLax(goMod, content, nil)
			if err != nil {
				return nil, fmt.Errorf("sources: %w", err)
			}
			m := &Module{Root: dir}
			if f.Module != nil {
				m.Path = f.Module.Mod.Path
			}
			return m, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
