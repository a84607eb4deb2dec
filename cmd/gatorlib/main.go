// Command gatorlib runs library scripts against an in-memory catalog or
// serves the catalog over HTTP.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	env := environment{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		lookup: os.LookupEnv,
		isTerm: stdinIsTerminal,
	}
	if err := newRootCmd(env).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
