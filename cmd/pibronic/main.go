package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gharib85/Pibronic/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		// Anything that is not an ExitError came from cobra's flag or
		// argument parsing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
