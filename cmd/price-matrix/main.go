// Package main is the entry point for the price-matrix engine.
package main

import (
	"os"

	"github.com/donaldgifford/print-price-matrix/cmd/price-matrix/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
