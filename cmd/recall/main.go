// Package main is the recall command line: provider inspection, chat, and
// conversation intelligence over JSON exported conversations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
