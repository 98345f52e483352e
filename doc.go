// Package typegrep searches type-checked Go code for expressions by their
// inferred type. It bridges go/types, which knows the type of every
// expression, and grep-style output that shows where each one is.
//
// # Pipeline
//
// A search runs in two phases:
//
//  1. Build: the requested files, the rest of their packages and the
//     packages of the same module they import are loaded with
//     golang.org/x/tools/go/packages. The requested files always bypass the
//     cache through a [Revalidator], so their packages are type-checked on
//     every search. Imported packages whose files are unchanged since an
//     earlier build are parsed but not type-checked; their types come from
//     an incremental SQLite cache.
//
//  2. Traverse: each requested file's syntax tree is walked in source order
//     and every value expression whose type string equals the query becomes
//     a [Match].
//
// # Usage
//
//	s, err := typegrep.New(typegrep.WithDir("path/to/module"))
//	if err != nil { ... }
//	defer s.Close()
//
//	results, err := s.Search(ctx, []string{"path/to/module/main.go"}, "int")
//	if err != nil { ... }
//	r := typegrep.NewRenderer(results.Fset(), true)
//	for m := range results.All() {
//		text, err := r.Render(ctx, m)
//		...
//	}
//
// # Queries
//
// A query is the canonical type string go/types prints for a type:
// "int", "[]string", "map[string]error", "func(a int, b int) string",
// "example.com/m/pkg.T". Matching is exact string equality. An alias and
// the type it names print differently only when go/types keeps the alias,
// and no normalization is attempted. An empty query lists every typed
// expression, each labeled with its own type.
package typegrep
