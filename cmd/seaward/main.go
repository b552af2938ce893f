package main

import (
	"os"

	"github.com/seaward-io/seaward/cmd/seaward/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
