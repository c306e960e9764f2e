package main

import (
	"fmt"
	"os"

	"gallery-thumbs/internal/thumbnails"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		// Command errors were already printed by the run
		if !thumbnails.IsCommandError(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
