// Package main is the entry point for the pixelrunner CLI.
package main

import (
	"github.com/devicelab-dev/pixelrunner/pkg/cli"
)

func main() {
	cli.Execute()
}
