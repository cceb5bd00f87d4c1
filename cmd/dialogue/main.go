// Package main is the entry point for the dialogue CLI.
//
// Usage:
//
//	dialogue [flags] <command> [args]
//
// Commands:
//
//	run       - Interactive practice session
//	generate  - Personalize the priority sentences
//	progress  - Show exposure progress
//	say       - Synthesize one example sentence
//	register  - Register the local identity
//	reset     - Wipe all local progress
//	version   - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/firstuse/dialogue/cmd/dialogue/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
