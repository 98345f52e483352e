package typegrep

import (
	"github.com/google/uuid"

	"github.com/jward/typegrep/internal/engine"
)

// Revalidator is the freshness hook a search hands to the engine. For every
// path it tracks it returns a fingerprint that has never been returned
// before, so the engine can never find a matching cache entry and must
// analyze the file from its current content. Other paths get no opinion and
// keep the engine's default caching.
type Revalidator struct {
	paths map[string]struct{}
}

var _ FreshnessHook = (*Revalidator)(nil)

// NewRevalidator tracks paths. Relative paths and symlinks are resolved the
// same way the engine keys its modules.
func NewRevalidator(paths []string) *Revalidator {
	r := &Revalidator{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		r.paths[engine.ModuleID(p)] = struct{}{}
	}
	return r
}

// Tracks reports whether path is forced to revalidate.
func (r *Revalidator) Tracks(path string) bool {
	if _, ok := r.paths[path]; ok {
		return true
	}
	_, ok := r.paths[engine.ModuleID(path)]
	return ok
}

// Fingerprint implements engine.FreshnessHook.
func (r *Revalidator) Fingerprint(path string) (string, bool) {
	if !r.Tracks(path) {
		return "", false
	}
	return uuid.NewString(), true
}
