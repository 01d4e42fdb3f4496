//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

func builtBinary() string {
	return filepath.Join(binDir, binName)
}

// Collect builds the CLI and collects filtered abstracts into the catalog.
func Collect() error {
	mg.Deps(Build)
	return sh.RunV(builtBinary(), "collect", "--filter")
}

// Extract builds the CLI and runs measurement extraction over the catalog.
func Extract() error {
	mg.Deps(Build)
	return sh.RunV(builtBinary(), "extract")
}

// Graph builds the CLI, writes the Turtle export, and loads it into Fuseki.
func Graph() error {
	mg.Deps(Build)
	if err := sh.RunV(builtBinary(), "graph", "build"); err != nil {
		return err
	}
	return sh.RunV(builtBinary(), "graph", "load")
}

// Serve builds the CLI and starts the HTTP API.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(builtBinary(), "serve")
}

// Pipeline runs collect, extract, and graph in order.
func Pipeline() error {
	mg.SerialDeps(Collect, Extract, Graph)
	return nil
}
