// Command fwcompat maintains the firmware compatibility catalog and validates
// eval sets and model outputs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/fwcompat/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// ExitErrors have already been reported by the command. Anything
		// else is a flag or argument error from cobra.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
