// Package engine wraps golang.org/x/tools/go/packages and go/types behind a
// build call that exports inferred expression types and syntax trees, with a
// SQLite-backed incremental cache that skips type checking of unchanged
// packages.
package engine

import (
	"context"
	"fmt"
	"go/token"
	"log"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jward/typegrep/internal/store"
)

// Engine runs builds. It is safe to reuse across builds but not to run
// builds concurrently: the cache has a single writer.
type Engine struct {
	store       *store.Store
	noCache     bool
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithoutCache disables the incremental cache. Every build type-checks
// every package.
func WithoutCache() Option {
	return func(e *Engine) {
		e.noCache = true
	}
}

// WithParallelism bounds how many cached files are parsed concurrently.
// Values below 1 mean GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// New creates an Engine whose cache lives in a SQLite database at dbPath.
// An empty dbPath keeps the cache in memory for the Engine's lifetime.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism < 1 {
		e.parallelism = runtime.GOMAXPROCS(0)
	}
	if e.noCache {
		return e, nil
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("engine: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("engine: migrate: %w", err)
	}
	e.store = s
	return e, nil
}

// Close releases the Engine's cache.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// ModuleID returns the key under which path appears in Outcome.Graph: the
// absolute path with symlinks resolved when possible.
func ModuleID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Build type-checks the packages containing sources, and the packages of the
// same module they import, and returns their syntax trees and inferred
// expression types. Files whose freshness check
// passes are parsed but not type-checked; their types come from the cache.
//
// A *CompileError is returned for duplicate sources, go command failures and
// syntax errors in any involved package. Type errors are reported as
// Outcome.Diagnostics instead. A source that no package contains has no
// unit in the graph.
func (e *Engine) Build(ctx context.Context, sources []string, opts Options) (*Outcome, error) {
	requested := make(map[string]bool, len(sources))
	patterns := make([]string, 0, len(sources))
	tests := opts.Tests
	var dups []string
	for _, src := range sources {
		id := ModuleID(src)
		if requested[id] {
			dups = append(dups, fmt.Sprintf("%s: error: duplicate module %s", src, id))
			continue
		}
		requested[id] = true
		patterns = append(patterns, "file="+id)
		if strings.HasSuffix(id, "_test.go") {
			tests = true
		}
	}
	if len(dups) > 0 {
		return nil, &CompileError{Messages: dups}
	}

	fset := token.NewFileSet()
	b := &build{
		engine:    e,
		fset:      fset,
		opts:      opts,
		tests:     tests,
		requested: requested,
		useCache:  e.store != nil,
		out: &Outcome{
			Fset:  fset,
			Graph: make(map[string]*Unit),
		},
	}
	if opts.ExportTypes {
		b.out.Types = make(TypeMap)
	}
	if len(patterns) == 0 {
		return b.out, nil
	}

	if b.useCache {
		if err := e.checkConfig(opts, tests); err != nil {
			log.Printf("warning: cache disabled for this build: %v", err)
			b.useCache = false
		}
	}

	if err := b.run(ctx, patterns); err != nil {
		return nil, err
	}
	if !opts.RetainTrees {
		for _, u := range b.out.Graph {
			u.Tree = nil
		}
	}
	return b.out, nil
}

// checkConfig drops every cached module when the build configuration differs
// from the one the cache was filled with.
func (e *Engine) checkConfig(opts Options, tests bool) error {
	current := configHash(opts, tests)
	stored, err := e.store.GetMetadata("config_hash")
	if err != nil {
		return err
	}
	if stored == current {
		return nil
	}
	if err := e.store.Reset(); err != nil {
		return err
	}
	return e.store.SetMetadata("config_hash", current)
}
