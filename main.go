package main

import (
	"os"

	"github.com/semlayer/semlayer/core/cli"
	"github.com/semlayer/semlayer/core/cli/cmd"
)

// Version can be set at build time using -ldflags
var Version = "dev"

func init() {
	// Set the version in cmd package so it can be accessed by commands
	cmd.SetVersion(Version)
}

func main() {
	os.Exit(cli.Execute())
}
