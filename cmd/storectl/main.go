// Command storectl is the operator CLI for inspecting and mutating a
// trailbase entity store directly: opening a repository, persisting an
// operation pack from a JSON file, listing entities, resolving conflicts,
// and reporting garbage-collectible blobs. It is an inspection/ops tool,
// not the human-facing query surface a full tracker would ship.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
