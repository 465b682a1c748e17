package main

import (
	"os"

	"github.com/alimgiray/gitreach/cmd/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
