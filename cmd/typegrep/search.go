package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/typegrep"
	"github.com/jward/typegrep/internal/config"
	"github.com/jward/typegrep/internal/sources"
)

func runSearch(cmd *cobra.Command, opts *options, args []string) error {
	start := time.Now()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	paths, buildFlags := splitArgs(cmd, args)
	if len(paths) == 0 {
		return fmt.Errorf("requires at least one path")
	}

	root, err := findModuleRoot(ctx, paths[0])
	if err != nil {
		return err
	}
	cfg, err := config.Load(root, opts.config)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)

	files, err := sources.NewExpander(cfg.Tests).Expand(ctx, paths)
	if err != nil {
		return err
	}

	searchOpts := []typegrep.Option{
		typegrep.WithDir(root),
		typegrep.WithBuildFlags(cfg.BuildFlags...),
		typegrep.WithBuildFlags(buildFlags...),
		typegrep.WithEnv(cfg.Env...),
		typegrep.WithTests(cfg.Tests),
		typegrep.WithParallelism(cfg.Parallelism),
	}
	if cfg.NoCache {
		searchOpts = append(searchOpts, typegrep.WithoutCache())
	} else {
		dbPath, err := resolveDBPath(cfg, root)
		if err != nil {
			return err
		}
		searchOpts = append(searchOpts, typegrep.WithCacheDB(dbPath))
	}

	s, err := typegrep.New(searchOpts...)
	if err != nil {
		return fmt.Errorf("creating searcher: %w", err)
	}
	defer s.Close()

	buildStart := time.Now()
	results, err := s.Search(ctx, files, opts.typeExpr)
	if err != nil {
		var cerr *typegrep.CompileError
		if errors.As(err, &cerr) {
			fmt.Fprintln(stderr, cerr.Error())
			return errReported
		}
		return err
	}
	buildDuration := time.Since(buildStart)

	renderStart := time.Now()
	n, err := printResults(ctx, stdout, results, cfg.Color)
	if err != nil {
		return err
	}
	renderDuration := time.Since(renderStart)

	if cfg.ShowErrors {
		for _, d := range results.Diagnostics() {
			fmt.Fprintln(stderr, d.String())
		}
	}

	if opts.verbose {
		fmt.Fprintf(stderr, "Searched %d files in %s (build: %s, render: %s): %d matches\n",
			len(files),
			time.Since(start).Round(time.Millisecond),
			buildDuration.Round(time.Millisecond),
			renderDuration.Round(time.Millisecond),
			n,
		)
	}
	return nil
}

// splitArgs separates paths from the build flags that follow "--".
func splitArgs(cmd *cobra.Command, args []string) (paths, buildFlags []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

// applyFlags lets explicitly set flags override the loaded config.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("color") {
		cfg.Color = opts.color
	}
	if opts.noColor {
		cfg.Color = false
	}
	if f.Changed("show-errors") {
		cfg.ShowErrors = opts.showErrors
	}
	if f.Changed("tests") {
		cfg.Tests = opts.tests
	}
	if f.Changed("cache-dir") {
		cfg.CacheDir = opts.cacheDir
	}
	if f.Changed("no-cache") {
		cfg.NoCache = opts.noCache
	}
}

// printResults renders every match, separating consecutive results with a
// blank line, and returns how many were printed.
func printResults(ctx context.Context, w io.Writer, results *typegrep.Results, color bool) (int, error) {
	r := typegrep.NewRenderer(results.Fset(), color)
	n := 0
	for m := range results.All() {
		text, err := r.Render(ctx, m)
		if err != nil {
			return n, err
		}
		if n > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, text)
		n++
	}
	return n, nil
}

// findModuleRoot returns the root of the module containing path, or the
// directory of path when it is not inside a module.
func findModuleRoot(ctx context.Context, path string) (string, error) {
	m, err := sources.FindModule(ctx, path)
	if err != nil {
		return "", err
	}
	if m != nil {
		return m.Root, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", path, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return abs, nil
	}
	return filepath.Dir(abs), nil
}

// resolveDBPath returns the cache database path, creating its directory.
func resolveDBPath(cfg *config.Config, root string) (string, error) {
	dir := cfg.ResolveCacheDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return filepath.Join(dir, "cache.db"), nil
}
