// Package main provides the Framedeck server and admin CLI.
package main

import (
	"os"

	"github.com/framedeck-labs/framedeck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
