// Command resolver runs the moniker resolution service: a cobra CLI with
// a serve subcommand (the HTTP API) and a reload subcommand (an operator
// trigger against a running instance's admin endpoint).
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
