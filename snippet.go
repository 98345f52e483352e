package typegrep

import (
	"context"
	"fmt"
	"go/ast"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/viant/afs"
)

const (
	sourceCacheSize  = 256
	snippetCacheSize = 4096
)

type snippetKey struct {
	path string
	node ast.Node
}

// snippets reads each source file at most once and remembers the text of
// every node it has rendered.
type snippets struct {
	fs       afs.Service
	sources  *lru.Cache[string, []string]
	rendered *lru.Cache[snippetKey, string]
}

func newSnippets() *snippets {
	// lru.New only fails for non-positive sizes.
	sources, _ := lru.New[string, []string](sourceCacheSize)
	rendered, _ := lru.New[snippetKey, string](snippetCacheSize)
	return &snippets{fs: afs.New(), sources: sources, rendered: rendered}
}

// lines returns the file's lines without their newlines.
func (s *snippets) lines(ctx context.Context, path string) ([]string, error) {
	if lines, ok := s.sources.Get(path); ok {
		return lines, nil
	}
	content, err := s.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	lines := strings.Split(string(content), "\n")
	s.sources.Add(path, lines)
	return lines, nil
}

// text returns lines first through last (1-based, inclusive) of path joined
// with newlines. The range is clamped to the file.
func (s *snippets) text(ctx context.Context, path string, node ast.Node, first, last int) (string, error) {
	key := snippetKey{path: path, node: node}
	if text, ok := s.rendered.Get(key); ok {
		return text, nil
	}
	lines, err := s.lines(ctx, path)
	if err != nil {
		return "", err
	}
	lo := max(first-1, 0)
	hi := min(max(last, first), len(lines))
	var text string
	if lo < hi {
		text = strings.Join(lines[lo:hi], "\n")
	}
	s.rendered.Add(key, text)
	return text, nil
}
