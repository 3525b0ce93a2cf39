// Package main provides the entry point for the searchlayer CLI.
package main

import (
	"os"

	"github.com/aineshm/searchlayer/cmd/searchlayer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
