package main

import (
	"os"

	"github.com/seaward-io/seaward/cmd/seawardctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
