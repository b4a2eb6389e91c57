// Command rqbench drives synthetic frames through the render queue and
// reports per-frame batching metrics.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}
