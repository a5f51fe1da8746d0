package main

import (
	"fmt"
	"os"
)

// Exit codes: 0 clean, 1 issues found, 2 fatal error.
func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pipefix: %v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
