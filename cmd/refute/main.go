package main

import (
	"os"

	"github.com/refutehq/refute/cmd/refute/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
