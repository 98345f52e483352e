package typegrep

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"iter"
	"os"

	"github.com/jward/typegrep/internal/engine"
)

// Builder runs the type-checking engine. *engine.Engine is the production
// implementation; tests substitute fakes.
type Builder interface {
	Build(ctx context.Context, sources []string, opts BuildOptions) (*Outcome, error)
}

// Searcher runs queries against Go source files.
type Searcher struct {
	builder     Builder
	engine      *engine.Engine // owned; nil when a Builder was supplied
	dir         string
	buildFlags  []string
	env         []string
	tests       bool
	cacheDB     string
	noCache     bool
	parallelism int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithBuilder replaces the type-checking engine.
func WithBuilder(b Builder) Option {
	return func(s *Searcher) {
		s.builder = b
	}
}

// WithDir sets the directory the build tool runs in. It selects the Go
// module the requested files are resolved against.
func WithDir(dir string) Option {
	return func(s *Searcher) {
		s.dir = dir
	}
}

// WithBuildFlags forwards flags such as -tags to the build tool.
func WithBuildFlags(flags ...string) Option {
	return func(s *Searcher) {
		s.buildFlags = append(s.buildFlags, flags...)
	}
}

// WithEnv adds KEY=VALUE pairs to the build tool's environment.
func WithEnv(env ...string) Option {
	return func(s *Searcher) {
		s.env = append(s.env, env...)
	}
}

// WithTests makes test variants of packages visible, which is required to
// search _test.go files.
func WithTests(tests bool) Option {
	return func(s *Searcher) {
		s.tests = tests
	}
}

// WithCacheDB sets the SQLite file backing the incremental cache. The
// default is an in-memory database that lives as long as the Searcher.
func WithCacheDB(path string) Option {
	return func(s *Searcher) {
		s.cacheDB = path
	}
}

// WithoutCache disables the incremental cache.
func WithoutCache() Option {
	return func(s *Searcher) {
		s.noCache = true
	}
}

// WithParallelism bounds how many cached files are parsed at once.
func WithParallelism(n int) Option {
	return func(s *Searcher) {
		s.parallelism = n
	}
}

// New creates a Searcher.
func New(opts ...Option) (*Searcher, error) {
	s := &Searcher{}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder != nil {
		return s, nil
	}

	var eopts []engine.Option
	if s.parallelism > 0 {
		eopts = append(eopts, engine.WithParallelism(s.parallelism))
	}
	if s.noCache {
		eopts = append(eopts, engine.WithoutCache())
	}
	e, err := engine.New(s.cacheDB, eopts...)
	if err != nil {
		return nil, fmt.Errorf("typegrep: %w", err)
	}
	s.engine = e
	s.builder = e
	return s, nil
}

// Close releases the engine's cache. Searchers built with WithBuilder own
// nothing.
func (s *Searcher) Close() error {
	if s.engine == nil {
		return nil
	}
	return s.engine.Close()
}

// Search type-checks paths and returns a lazy sequence of every expression
// in them whose type string equals query. An empty query matches every
// typed expression.
//
// Each requested file is re-analyzed from its current content even when the
// cache holds an entry whose stat information still matches. Files outside
// paths keep normal cache behavior.
//
// A missing path yields a *PathNotFoundError before anything is built. A
// failed build yields the engine's *CompileError unchanged.
func (s *Searcher) Search(ctx context.Context, paths []string, query string) (*Results, error) {
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &PathNotFoundError{Path: p}
		}
		if err != nil {
			return nil, fmt.Errorf("typegrep: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("typegrep: %s is a directory", p)
		}
	}

	out, err := s.builder.Build(ctx, paths, BuildOptions{
		ExportTypes: true,
		RetainTrees: true,
		Hook:        NewRevalidator(paths),
		Dir:         s.dir,
		BuildFlags:  s.buildFlags,
		Env:         s.env,
		Tests:       s.tests,
	})
	if err != nil {
		var cerr *CompileError
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		return nil, fmt.Errorf("typegrep: build: %w", err)
	}
	return &Results{outcome: out, paths: paths, query: query}, nil
}

// Results is the match sequence of one Search. Files are traversed one at a
// time as matches are consumed, in the order they were requested. Results
// cannot be rewound.
type Results struct {
	outcome *Outcome
	paths   []string
	query   string
	next    int // index of the next path to traverse
	pending []*Match
}

// Next returns the next match, or false once every file is exhausted.
func (r *Results) Next() (*Match, bool) {
	for len(r.pending) == 0 {
		if r.next >= len(r.paths) {
			return nil, false
		}
		path := r.paths[r.next]
		r.next++

		// Files the build did not analyze, such as ones excluded by build
		// constraints, contribute nothing.
		u := r.outcome.Unit(path)
		if u == nil || u.Tree == nil {
			continue
		}
		r.pending = Visit(path, u, r.outcome.Types, r.query)
	}
	m := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return m, true
}

// All returns an iterator over the remaining matches. Breaking out of the
// loop leaves the rest of the files untraversed.
func (r *Results) All() iter.Seq[*Match] {
	return func(yield func(*Match) bool) {
		for {
			m, ok := r.Next()
			if !ok || !yield(m) {
				return
			}
		}
	}
}

// Fset returns the file set that positions every match.
func (r *Results) Fset() *token.FileSet {
	return r.outcome.Fset
}

// Diagnostics returns the type errors the build reported. They never stop a
// search.
func (r *Results) Diagnostics() []Diagnostic {
	return r.outcome.Diagnostics
}

// Outcome exposes the full build result.
func (r *Results) Outcome() *Outcome {
	return r.outcome
}
