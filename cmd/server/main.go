// Package main implements the kotoba API server. It serves lesson
// progression and review scheduling over HTTP and exposes the migration and
// token tooling used to operate it.
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
