package engine

import (
	"errors"
	"strings"
)

// ErrCompile is matched by every *CompileError.
var ErrCompile = errors.New("compile error")

// CompileError reports a build the engine could not complete consistently:
// duplicate modules, go list failures or syntax errors. Messages are the
// engine's own, unmodified.
type CompileError struct {
	Messages []string
}

func (e *CompileError) Error() string {
	return strings.Join(e.Messages, "\n")
}

func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}
