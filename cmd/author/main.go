// Package main provides the entry point for the Author CLI.
package main

import (
	"fmt"
	"os"

	"github.com/author-ai/author/cmd/author/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
