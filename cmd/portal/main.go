// Package main is the portal command: one-shot lookups, an interactive
// shell, and the HTTP server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}
