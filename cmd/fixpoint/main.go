// Command fixpoint evaluates forward-chaining rule sets against facts.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/fixpoint/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Command failures have already been reported by the formatter.
		// Anything else is a usage error from argument parsing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
