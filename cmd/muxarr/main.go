// Package main is the entry point for the muxarr application.
package main

import (
	"os"

	"github.com/muxarr/muxarr/cmd/muxarr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
