// Package main is the entrypoint for the engarde CLI.
package main

import (
	"os"

	"github.com/canonica-labs/engarde/internal/cli"
)

// Set with -ldflags "-X main.version=..."
var (
	version string
	commit  string
	date    string
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.New().Execute())
}
