// Command dbtcore is a thin CLI over the core's public API (SPEC_FULL.md
// §B.5): a decode subcommand for one-off disassembly and a demo subcommand
// that runs spec.md §8's concrete scenarios end to end and reports
// pass/fail. It deliberately carries no translation-policy logic of its
// own (spec.md §1's Non-goals: dispatch loop, translation-tag decisions).
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
