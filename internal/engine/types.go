package engine

import (
	"go/ast"
	"go/token"
)

// Type is an inferred type. String returns its canonical textual form, the
// same rendering go/types uses for types.TypeString(t, nil).
type Type interface {
	String() string
}

// CachedType is a type restored from the incremental cache. Only its
// canonical string survives between builds.
type CachedType string

func (c CachedType) String() string { return string(c) }

// TypeMap maps value expressions to their inferred types. It is populated by
// Build and read-only afterwards.
type TypeMap map[ast.Expr]Type

// Unit is one analyzed source file.
type Unit struct {
	// Path is the canonical absolute path of the file.
	Path string
	// Package is the ID of the package the file was checked in.
	Package string
	// Tree is nil when the build did not retain syntax trees.
	Tree *ast.File
	// Requested reports whether the file was among the build sources.
	Requested bool
	// Cached reports whether the file's types were restored from the cache
	// instead of being checked by this build.
	Cached bool
}

// Diagnostic is a non-fatal checker message, such as a type error.
type Diagnostic struct {
	Position string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Position == "" {
		return d.Message
	}
	return d.Position + ": " + d.Message
}

// Outcome is the result of one Build.
type Outcome struct {
	Fset *token.FileSet
	// Graph is keyed by canonical absolute file path (see ModuleID).
	Graph map[string]*Unit
	// Types is nil unless the build exported types.
	Types       TypeMap
	Diagnostics []Diagnostic
}

// Unit returns the unit for path, or nil when the build produced none.
func (o *Outcome) Unit(path string) *Unit {
	if o == nil || o.Graph == nil {
		return nil
	}
	return o.Graph[ModuleID(path)]
}

// FreshnessHook lets a caller override the cache freshness check. Build
// calls Fingerprint once per module before deciding whether its cached
// analysis can be reused. Returning ok == false defers to the engine's
// default policy.
type FreshnessHook interface {
	Fingerprint(path string) (fingerprint string, ok bool)
}

// Options configures one Build.
type Options struct {
	// ExportTypes populates Outcome.Types.
	ExportTypes bool
	// RetainTrees keeps Unit.Tree after Build returns.
	RetainTrees bool
	// Hook overrides the freshness check per module. May be nil.
	Hook FreshnessHook
	// Dir is the working directory for the go command.
	Dir string
	// BuildFlags are passed verbatim to the go command.
	BuildFlags []string
	// Env is appended to the process environment for the go command.
	Env []string
	// Tests includes test variants of packages. It is implied when a
	// source is a _test.go file.
	Tests bool
}
