package main

import (
	"os"

	"github.com/ramonehamilton/deckstats/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
