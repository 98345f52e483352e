package typegrep

import (
	"errors"
	"fmt"
)

// ErrPathNotFound is matched by every *PathNotFoundError.
var ErrPathNotFound = errors.New("path not found")

// PathNotFoundError reports a requested path that does not exist. It is
// detected before any build starts.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("%s: no such file or directory", e.Path)
}

func (e *PathNotFoundError) Is(target error) bool {
	return target == ErrPathNotFound
}
