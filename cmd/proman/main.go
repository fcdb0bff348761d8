// Package main is the entry point for the proman command-line tool.
//
// MAIN PACKAGE IN GO:
// The main package stays minimal. Everything it needs (configuration,
// logging, the database, the image pipeline, the services) is wired by
// internal/cli for each command, so main only has to run the command tree
// and turn its result into a process exit code.
//
// WHY os.Exit HERE AND NOWHERE ELSE?
// os.Exit skips deferred functions. Commands close the database and stop
// the ingest workers with defer, so exiting is left to the very last line,
// after all of that has run.
package main

import (
	"os"

	"github.com/sakif/proman/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand()))
}
