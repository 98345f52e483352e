package engine

import (
	"context"
	"go/ast"
	"go/parser"

	"golang.org/x/sync/errgroup"

	"github.com/jward/typegrep/internal/astkind"
)

// exprKey locates an expression in a file without relying on node identity,
// which does not survive between builds.
type exprKey struct {
	kind       string
	start, end int
}

// restored is the per-file output of a parallel restore worker.
type restored struct {
	unit  *Unit
	types TypeMap
	diags []Diagnostic
}

// restore parses every file of the fresh packages in parallel and attaches
// the cached types to the new trees. Parsing is never skipped: trees are
// always built from the file as it is on disk now.
func (b *build) restore(ctx context.Context, fresh []*pkgPlan) error {
	type job struct {
		plan *pkgPlan
		id   string
	}
	var jobs []job
	for _, p := range fresh {
		for _, id := range p.files {
			jobs = append(jobs, job{plan: p, id: id})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	results := make([]restored, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.engine.parallelism)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := b.restoreFile(j.plan, j.id)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		b.out.Graph[r.unit.Path] = r.unit
		if b.out.Types != nil {
			for expr, t := range r.types {
				b.out.Types[expr] = t
			}
		}
		b.out.Diagnostics = append(b.out.Diagnostics, r.diags...)
	}
	return nil
}

func (b *build) restoreFile(p *pkgPlan, id string) (restored, error) {
	f, err := parser.ParseFile(b.fset, id, nil, parser.AllErrors|parser.ParseComments)
	if err != nil {
		return restored{}, &CompileError{Messages: []string{err.Error()}}
	}
	m := p.cached[id]
	r := restored{
		unit: &Unit{
			Path:      id,
			Package:   p.id,
			Tree:      f,
			Requested: b.requested[id],
			Cached:    true,
		},
		types: make(TypeMap),
	}

	exprs, err := b.engine.store.ExprTypesByModule(m.ID)
	if err != nil {
		return restored{}, err
	}
	byKey := make(map[exprKey]string, len(exprs))
	for _, et := range exprs {
		byKey[exprKey{et.Kind, et.StartOffset, et.EndOffset}] = et.TypeString
	}

	tf := b.fset.File(f.Pos())
	ast.Inspect(f, func(n ast.Node) bool {
		expr, ok := n.(ast.Expr)
		if !ok || tf == nil {
			return true
		}
		key := exprKey{astkind.Of(expr).String(), tf.Offset(expr.Pos()), tf.Offset(expr.End())}
		if s, ok := byKey[key]; ok {
			r.types[expr] = CachedType(s)
		}
		return true
	})

	diags, err := b.engine.store.DiagnosticsByModule(m.ID)
	if err != nil {
		return restored{}, err
	}
	for _, d := range diags {
		r.diags = append(r.diags, Diagnostic{Position: d.Position, Message: d.Message})
	}
	return r, nil
}
