// Package main is the entry point for the moltcourt CLI.
package main

import (
	"os"

	"github.com/moltcourt/moltcourt/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
