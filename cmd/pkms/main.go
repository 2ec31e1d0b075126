// Package main provides the entry point for the pkms CLI.
package main

import (
	"os"

	"github.com/t0bybr/pkms/cmd/pkms/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
