// Command qtrace builds quantum circuit grids from operation lifecycle events.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/qtrace/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
