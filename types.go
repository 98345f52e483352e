package typegrep

import (
	"github.com/jward/typegrep/internal/astkind"
	"github.com/jward/typegrep/internal/engine"
)

// Aliases for the engine types that appear in the Searcher API, so callers
// never import internal packages.

type Unit = engine.Unit
type Outcome = engine.Outcome
type TypeMap = engine.TypeMap
type Diagnostic = engine.Diagnostic
type CompileError = engine.CompileError
type NodeKind = astkind.Kind
type BuildOptions = engine.Options
type FreshnessHook = engine.FreshnessHook

// ErrCompile is matched by every *CompileError.
var ErrCompile = engine.ErrCompile
