package main

import (
	"fmt"
	"os"

	"github.com/rami3l/emberlox/cmd"
)

func main() {
	// A non-nil Execute error is cobra's own arg-parsing/usage failure
	// (e.g. too many positional args); appMain handles every other exit
	// path itself via os.Exit, so this is always the usage-error case.
	if err := cmd.App().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(64)
	}
}
