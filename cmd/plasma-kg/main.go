// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the plasma-kg CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/plasma-kg/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// secretDefault returns fallback when it is set, or the loaded secret
// for key otherwise. Explicit configuration beats the secrets dir.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets.Value(key, "")
}

// rootCmd is the base command for the plasma-kg CLI.
var rootCmd = &cobra.Command{
	Use:   "plasma-kg",
	Short: "Knowledge graph pipeline for plasma physics literature",
	Long: `plasma-kg builds a queryable knowledge graph from plasma physics papers
on arXiv. The pipeline collects recent abstracts, extracts electron
temperature and density measurements, normalizes them to canonical units,
and publishes them as RDF for SPARQL queries and natural-language search.

Each pipeline stage is a subcommand: collect, extract, graph, catalog,
query, stats, and serve. Stages share a SQLite catalog and a Fuseki
triple store, so they can run independently or end to end.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: plasma-kg.yaml in . or ~/.config/plasma-kg)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("plasma-kg")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "plasma-kg"))
		}
	}

	viper.SetEnvPrefix("PLASMA_KG")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
