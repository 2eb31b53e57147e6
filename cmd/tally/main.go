// Command tally browses, seeds, serves and tests paginated record
// collections.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tally/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
