// ABOUTME: Entry point for the nestling CLI
// ABOUTME: Command-line companion for the Nestling parenting assistant

package main

import (
	"fmt"
	"os"

	"github.com/nestlinghq/nestling-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
