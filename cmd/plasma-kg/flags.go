// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/plasma-kg/internal/extract"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

const (
	defaultCatalogPath   = "data/catalog.db"
	defaultFusekiQuery   = "http://localhost:3030/plasma/sparql"
	defaultFusekiData    = "http://localhost:3030/plasma/data"
	defaultModel         = "gpt-4o-mini"
	defaultTimeout       = 30 * time.Second
	defaultOracleWait    = 60 * time.Second
	defaultUserAgent     = "plasma-kg/0.1"
	openaiAPIKeySecret   = "openai-api-key"
	fusekiPasswordSecret = "fuseki-password"
)

// stringSetting resolves a string option: an explicitly set flag wins,
// then the config file, then the built-in default.
func stringSetting(cmd *cobra.Command, flag, key, fallback string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

// intSetting resolves an integer option with the same precedence as
// stringSetting. Zero in both flag and config selects the fallback.
func intSetting(cmd *cobra.Command, flag, key string, fallback int) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	if v := viper.GetInt(key); v != 0 {
		return v
	}
	return fallback
}

// durationSetting resolves a duration option with the same precedence.
func durationSetting(cmd *cobra.Command, flag, key string, fallback time.Duration) time.Duration {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetDuration(flag)
		return v
	}
	if v := viper.GetDuration(key); v != 0 {
		return v
	}
	return fallback
}

// addCatalogFlag registers the shared --catalog flag.
func addCatalogFlag(cmd *cobra.Command) {
	cmd.Flags().String("catalog", "", "catalog database file (default data/catalog.db)")
}

func catalogConfig(cmd *cobra.Command) types.CatalogConfig {
	return types.CatalogConfig{
		Path: stringSetting(cmd, "catalog", "catalog.path", defaultCatalogPath),
	}
}

// addFusekiFlags registers the connection flags shared by every command
// that talks to the triple store.
func addFusekiFlags(cmd *cobra.Command) {
	cmd.Flags().String("fuseki-query", "", "SPARQL query endpoint (default http://localhost:3030/plasma/sparql)")
	cmd.Flags().String("fuseki-data", "", "Graph Store data endpoint (default http://localhost:3030/plasma/data)")
	cmd.Flags().String("fuseki-user", "", "basic-auth username for Fuseki")
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
}

// fusekiConfig builds the triple store config from flags, the config
// file, and the secrets dir. The password never travels on the command
// line; it comes from the config file or .secrets/fuseki-password.
func fusekiConfig(cmd *cobra.Command) types.FusekiConfig {
	return types.FusekiConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   durationSetting(cmd, "timeout", "fuseki.timeout", defaultTimeout),
			UserAgent: defaultUserAgent,
		},
		QueryEndpoint: stringSetting(cmd, "fuseki-query", "fuseki.query_endpoint", defaultFusekiQuery),
		DataEndpoint:  stringSetting(cmd, "fuseki-data", "fuseki.data_endpoint", defaultFusekiData),
		Username:      stringSetting(cmd, "fuseki-user", "fuseki.username", ""),
		Password:      secretDefault(fusekiPasswordSecret, viper.GetString("fuseki.password")),
	}
}

// addOracleFlags registers the AI validation flags shared by extract,
// query, and serve.
func addOracleFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "AI model for oracle calls (default gpt-4o-mini)")
	cmd.Flags().Bool("no-oracle", false, "skip oracle calls, keep pattern results only")
}

// oracleConfig builds the oracle config. The API key never travels on
// the command line; it comes from the config file or
// .secrets/openai-api-key.
func oracleConfig(cmd *cobra.Command) types.OracleConfig {
	disabled, _ := cmd.Flags().GetBool("no-oracle")
	return types.OracleConfig{
		Model:    stringSetting(cmd, "model", "oracle.model", defaultModel),
		APIKey:   secretDefault(openaiAPIKeySecret, viper.GetString("oracle.api_key")),
		Disabled: disabled,
	}
}

// newOracle builds the OpenAI backend, or returns nil when the oracle is
// disabled or no API key is configured. A nil backend means pattern-only
// operation, so a missing key degrades rather than aborts.
func newOracle(cfg types.OracleConfig) *extract.OpenAIBackend {
	if cfg.Disabled {
		return nil
	}
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "warning: no OpenAI API key configured, running without oracle (add .secrets/openai-api-key)")
		return nil
	}
	return &extract.OpenAIBackend{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Client:     &http.Client{Timeout: defaultOracleWait},
		MaxRetries: cfg.MaxRetries,
	}
}
