// Command journal is a personal trading journal for stock and crypto trades.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/fatih/color"

	"trade-journal/internal/cli"
	"trade-journal/internal/logging"
)

func main() {
	logger := logging.NewLogger()

	if err := cli.Execute(logger, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}
