package engine

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/tools/go/packages"

	"github.com/jward/typegrep/internal/astkind"
	"github.com/jward/typegrep/internal/store"
)

const (
	filesMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles

	// resolveMode lists the whole import graph so that packages of the same
	// module can be planned alongside the ones that own the sources.
	resolveMode = filesMode | packages.NeedImports | packages.NeedDeps | packages.NeedModule

	// checkMode type-checks the loaded packages from source and their
	// imports from export data.
	checkMode = filesMode | packages.NeedImports | packages.NeedTypes |
		packages.NeedSyntax | packages.NeedTypesInfo
)

// build holds the state of one Engine.Build call.
type build struct {
	engine    *Engine
	fset      *token.FileSet
	opts      Options
	tests     bool
	requested map[string]bool
	useCache  bool
	out       *Outcome
}

// pkgPlan is one package whose claimed files are analyzed together.
type pkgPlan struct {
	id           string
	files        []string          // claimed module IDs, in package order
	fingerprints map[string]string // module ID → fingerprint for this build
	cached       map[string]*store.Module
}

// run executes the three build phases:
//
//	Resolve (go list):  map every source to the package that owns it and
//	                    find the packages of the same module it imports.
//	Plan:               fingerprint each module and split packages into
//	                    cache hits and packages that must be checked.
//	Analyze:            parse cache hits in parallel and restore their types;
//	                    type-check the rest in one load and record them.
func (b *build) run(ctx context.Context, patterns []string) error {
	pkgs, err := packages.Load(b.config(ctx, resolveMode), patterns...)
	if err != nil {
		return &CompileError{Messages: []string{err.Error()}}
	}

	plans, err := b.plan(pkgs)
	if err != nil {
		return err
	}

	var fresh, stale []*pkgPlan
	for _, p := range plans {
		if b.isFresh(p) {
			fresh = append(fresh, p)
		} else {
			stale = append(stale, p)
		}
	}

	if err := b.restore(ctx, fresh); err != nil {
		return err
	}
	return b.check(ctx, stale)
}

func (b *build) config(ctx context.Context, mode packages.LoadMode) *packages.Config {
	cfg := &packages.Config{
		Context:    ctx,
		Mode:       mode,
		Dir:        b.opts.Dir,
		BuildFlags: b.opts.BuildFlags,
		Tests:      b.tests,
		Fset:       b.fset,
	}
	if len(b.opts.Env) > 0 {
		cfg.Env = append(os.Environ(), b.opts.Env...)
	}
	return cfg
}

// plan assigns every requested file to exactly one package, reports go list
// failures of the involved packages, and fingerprints every file they claim.
// Involved packages are the owners of the sources followed by the packages
// of their modules that the owners import.
func (b *build) plan(pkgs []*packages.Package) ([]*pkgPlan, error) {
	owners := make(map[string]*packages.Package)
	for _, pkg := range pkgs {
		for _, f := range pkg.CompiledGoFiles {
			id := ModuleID(f)
			if !b.requested[id] {
				continue
			}
			if cur, ok := owners[id]; !ok || preferOwner(id, cur, pkg) {
				owners[id] = pkg
			}
		}
	}

	// Owning packages in load order.
	var involved []*packages.Package
	seen := make(map[string]bool)
	for _, pkg := range pkgs {
		if seen[pkg.ID] {
			continue
		}
		for _, owner := range owners {
			if owner == pkg {
				involved = append(involved, pkg)
				seen[pkg.ID] = true
				break
			}
		}
	}
	involved = append(involved, localDeps(involved)...)

	var msgs []string
	for _, pkg := range involved {
		msgs = append(msgs, fatalErrors(pkg)...)
	}
	if len(msgs) > 0 {
		return nil, &CompileError{Messages: msgs}
	}

	// Requested files claim their owner first, then every other file of an
	// involved package goes to the first package that lists it.
	claimed := make(map[string]string)
	for id, owner := range owners {
		claimed[id] = owner.ID
	}
	var plans []*pkgPlan
	for _, pkg := range involved {
		p := &pkgPlan{id: pkg.ID, fingerprints: make(map[string]string)}
		for _, f := range pkg.CompiledGoFiles {
			id := ModuleID(f)
			if owner, ok := claimed[id]; ok && owner != pkg.ID {
				continue
			}
			if _, dup := p.fingerprints[id]; dup {
				continue
			}
			claimed[id] = pkg.ID
			p.files = append(p.files, id)
			p.fingerprints[id] = fingerprint(b.opts.Hook, id)
		}
		if len(p.files) == 0 {
			continue
		}
		plans = append(plans, p)
	}

	if b.useCache {
		for _, p := range plans {
			cached, err := b.engine.store.ModulesByPaths(p.files)
			if err != nil {
				log.Printf("warning: cache lookup for %s: %v", p.id, err)
				continue
			}
			p.cached = cached
		}
	}
	return plans, nil
}

// localDeps returns the packages of the roots' own modules that the roots
// import directly or indirectly, ordered by import path. The standard library
// and other modules are not analyzed.
func localDeps(roots []*packages.Package) []*packages.Package {
	modules := make(map[string]bool)
	seen := make(map[string]bool)
	for _, pkg := range roots {
		seen[pkg.ID] = true
		if pkg.Module != nil {
			modules[pkg.Module.Path] = true
		}
	}

	var deps []*packages.Package
	var visit func(pkg *packages.Package)
	visit = func(pkg *packages.Package) {
		for _, imp := range pkg.Imports {
			if seen[imp.ID] {
				continue
			}
			seen[imp.ID] = true
			if imp.Module == nil || !modules[imp.Module.Path] || isTestVariant(imp) {
				continue
			}
			deps = append(deps, imp)
			visit(imp)
		}
	}
	for _, pkg := range roots {
		visit(pkg)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].PkgPath < deps[j].PkgPath })
	return deps
}

// fatalErrors returns the messages of pkg's errors that abort the build.
// Type errors are diagnostics. When imports come from export data the go
// command also compiles the package and repeats its type errors as a list
// error starting with "# <package>"; that copy is dropped whenever the
// checker reported the errors itself.
func fatalErrors(pkg *packages.Package) []string {
	checked := false
	for _, perr := range pkg.Errors {
		if perr.Kind == packages.TypeError || perr.Kind == packages.ParseError {
			checked = true
			break
		}
	}
	var msgs []string
	for _, perr := range pkg.Errors {
		switch {
		case perr.Kind == packages.TypeError:
		case perr.Kind == packages.ListError && checked && strings.HasPrefix(perr.Msg, "# "):
		default:
			msgs = append(msgs, perr.Error())
		}
	}
	return msgs
}

// preferOwner reports whether cand should own the file id instead of cur.
// Test files belong to test variants, everything else to the plain package.
func preferOwner(id string, cur, cand *packages.Package) bool {
	wantVariant := strings.HasSuffix(id, "_test.go")
	return isTestVariant(cand) == wantVariant && isTestVariant(cur) != wantVariant
}

func isTestVariant(pkg *packages.Package) bool {
	return strings.Contains(pkg.ID, " [") || strings.HasSuffix(pkg.ID, ".test")
}

// isFresh reports whether every claimed file of p has a cache entry from the
// same package with the fingerprint computed for this build.
func (b *build) isFresh(p *pkgPlan) bool {
	if !b.useCache || p.cached == nil || len(p.files) == 0 {
		return false
	}
	for _, id := range p.files {
		m := p.cached[id]
		if m == nil || m.PackageID != p.id || m.Fingerprint != p.fingerprints[id] {
			return false
		}
	}
	return true
}

// check type-checks stale packages with a single load and records their
// trees, types and diagnostics in the outcome and the cache.
func (b *build) check(ctx context.Context, stale []*pkgPlan) error {
	if len(stale) == 0 {
		return nil
	}
	byID := make(map[string]*pkgPlan, len(stale))
	patterns := make([]string, 0, len(stale))
	for _, p := range stale {
		byID[p.id] = p
		if len(p.files) > 0 {
			patterns = append(patterns, "file="+p.files[0])
		}
	}

	pkgs, err := packages.Load(b.config(ctx, checkMode), patterns...)
	if err != nil {
		return &CompileError{Messages: []string{err.Error()}}
	}

	var msgs []string
	var batches []*store.ModuleBatch
	done := make(map[string]bool)
	for _, pkg := range pkgs {
		p := byID[pkg.ID]
		if p == nil || done[pkg.ID] {
			continue
		}
		done[pkg.ID] = true

		var diags []Diagnostic
		for _, perr := range pkg.Errors {
			if perr.Kind == packages.TypeError {
				diags = append(diags, Diagnostic{Position: perr.Pos, Message: perr.Msg})
			}
		}
		if fatal := fatalErrors(pkg); len(fatal) > 0 {
			msgs = append(msgs, fatal...)
			continue
		}
		batches = append(batches, b.record(pkg, p, diags)...)
	}
	if len(msgs) > 0 {
		return &CompileError{Messages: msgs}
	}
	for id := range byID {
		if !done[id] {
			return &CompileError{Messages: []string{fmt.Sprintf("package %s: not found on reload", id)}}
		}
	}

	if b.useCache && len(batches) > 0 {
		if err := b.engine.store.CommitModules(batches); err != nil {
			log.Printf("warning: cache write: %v", err)
		}
	}
	return nil
}

// record adds the checked package's claimed files to the outcome and returns
// the cache batches that describe them.
func (b *build) record(pkg *packages.Package, p *pkgPlan, diags []Diagnostic) []*store.ModuleBatch {
	claimed := make(map[string]bool, len(p.files))
	for _, id := range p.files {
		claimed[id] = true
	}

	now := time.Now()
	batches := make(map[string]*store.ModuleBatch, len(p.files))
	names := make(map[string]string) // token file name → module ID
	for _, f := range pkg.Syntax {
		tf := b.fset.File(f.Pos())
		if tf == nil {
			continue
		}
		id := ModuleID(tf.Name())
		if !claimed[id] {
			continue
		}
		names[tf.Name()] = id
		b.out.Graph[id] = &Unit{
			Path:      id,
			Package:   pkg.ID,
			Tree:      f,
			Requested: b.requested[id],
		}
		batches[id] = &store.ModuleBatch{Module: store.Module{
			Path:        id,
			PackageID:   pkg.ID,
			Fingerprint: p.fingerprints[id],
			AnalyzedAt:  now,
		}}
	}

	if pkg.TypesInfo != nil {
		for expr, tv := range pkg.TypesInfo.Types {
			if !exportable(tv) {
				continue
			}
			tf := b.fset.File(expr.Pos())
			if tf == nil {
				continue
			}
			id, ok := names[tf.Name()]
			if !ok {
				continue
			}
			if b.out.Types != nil {
				b.out.Types[expr] = tv.Type
			}
			batches[id].Exprs = append(batches[id].Exprs, store.ExprType{
				Kind:        astkind.Of(expr).String(),
				StartOffset: tf.Offset(expr.Pos()),
				EndOffset:   tf.Offset(expr.End()),
				TypeString:  tv.Type.String(),
			})
		}
	}

	for _, d := range diags {
		b.out.Diagnostics = append(b.out.Diagnostics, d)
		if batch := batchFor(batches, p.files, d.Position); batch != nil {
			batch.Diagnostics = append(batch.Diagnostics, store.Diagnostic{
				Position: d.Position,
				Message:  d.Message,
			})
		}
	}

	result := make([]*store.ModuleBatch, 0, len(batches))
	for _, id := range p.files {
		if batch, ok := batches[id]; ok {
			result = append(result, batch)
		}
	}
	return result
}

// exportable reports whether tv describes a value with a usable type. Type
// expressions, builtins, void calls and operands that failed to resolve are
// left out of the type map.
func exportable(tv types.TypeAndValue) bool {
	if tv.Type == nil || !tv.IsValue() {
		return false
	}
	if basic, ok := tv.Type.(*types.Basic); ok && basic.Kind() == types.Invalid {
		return false
	}
	return true
}

// batchFor picks the batch a diagnostic at position belongs to, falling back
// to the package's first file.
func batchFor(batches map[string]*store.ModuleBatch, files []string, position string) *store.ModuleBatch {
	for _, id := range files {
		if strings.HasPrefix(position, id+":") {
			return batches[id]
		}
	}
	for _, id := range files {
		if batch, ok := batches[id]; ok {
			return batch
		}
	}
	return nil
}
