// Package main is the entry point for the ppm CLI client.
package main

import (
	"github.com/donaldgifford/print-price-matrix/cmd/ppm/cmd"
)

func main() {
	cmd.Execute()
}
