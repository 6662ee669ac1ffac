// Command modelsearch searches model families and hyperparameters for a
// tabular regression problem and serves predictions from the winner.
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
