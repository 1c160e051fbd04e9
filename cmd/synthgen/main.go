package main

import (
	"os"

	"github.com/psantana5/synthgen/cmd/synthgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
