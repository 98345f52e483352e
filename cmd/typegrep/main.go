package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errReported marks an error that has already been printed.
var errReported = errors.New("reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// options holds the command-line flags.
type options struct {
	typeExpr   string
	color      bool
	noColor    bool
	showErrors bool
	tests      bool
	cacheDir   string
	noCache    bool
	config     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "typegrep [flags] <path>... [-- <go build flags>...]",
		Short: "Search Go code for expressions by inferred type",
		Long: `Typegrep type-checks Go source files and prints every expression whose
inferred type matches a type string, such as "int", "[]string" or
"example.com/m/pkg.T". Without --type it lists every typed expression.

Directories are searched recursively. Arguments after -- are passed to the
go command as build flags.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.typeExpr, "type", "t", "", "type string to search for (default: list all types)")
	f.BoolVar(&opts.color, "color", true, "highlight matches with ANSI colors")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colors")
	f.BoolVar(&opts.showErrors, "show-errors", false, "print type-checker errors after the results")
	f.BoolVar(&opts.tests, "tests", false, "include _test.go files when expanding directories")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "cache directory (default: .typegrep in the module root)")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the incremental cache")
	f.StringVar(&opts.config, "config", "", "config file (default: .typegrep.yaml in the module root)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print a timing summary to stderr")
	return cmd
}
