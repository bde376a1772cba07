// Package main provides the entry point for clubmesh.
//
// clubmesh is the command-line tool for managing clubhouse tokens and
// the follow graph against a local store.
package main

import (
	"os"

	"github.com/yndnr/clubmesh-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError("%v", err)
		os.Exit(1)
	}
}
