// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/plasma-kg/internal/extract"
	"github.com/pdiddy/plasma-kg/internal/query"
	"github.com/pdiddy/plasma-kg/internal/server"
	"github.com/pdiddy/plasma-kg/internal/sparql"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge graph over HTTP",
	Long: `Serve runs the HTTP API: paper listing and search, temperature and
density listings with range filters, aggregate statistics, and the
natural-language query endpoint. Read endpoints are cached. Ctrl-C
shuts down gracefully, letting in-flight requests finish.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().Bool("no-cache", false, "disable response caching")
	serveCmd.Flags().Duration("cache-ttl", 0, "cached response lifetime (default 5m)")
	serveCmd.Flags().StringSlice("cors-origin", nil, "allowed CORS origins (default *)")
	serveCmd.Flags().Bool("debug", false, "verbose development logging")
	addOracleFlags(serveCmd)
	addFusekiFlags(serveCmd)

	rootCmd.AddCommand(serveCmd)
}

func serverConfig(cmd *cobra.Command) types.ServerConfig {
	cacheEnabled := true
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cacheEnabled = false
	} else if viper.IsSet("server.cache_enabled") {
		cacheEnabled = viper.GetBool("server.cache_enabled")
	}

	origins, _ := cmd.Flags().GetStringSlice("cors-origin")
	if len(origins) == 0 {
		origins = viper.GetStringSlice("server.cors_origins")
	}

	return types.ServerConfig{
		Addr:                   stringSetting(cmd, "addr", "server.addr", ""),
		CacheEnabled:           cacheEnabled,
		CacheTTL:               durationSetting(cmd, "cache-ttl", "server.cache_ttl", 0),
		CacheMaxEntries:        viper.GetInt("server.cache_max_entries"),
		DefaultPageSize:        viper.GetInt("server.default_page_size"),
		MaxPageSize:            viper.GetInt("server.max_page_size"),
		MaxMeasurementPageSize: viper.GetInt("server.max_measurement_page_size"),
		CORSOrigins:            origins,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")

	logger, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := sparql.NewClient(fusekiConfig(cmd))

	var oracle extract.Oracle
	if b := newOracle(oracleConfig(cmd)); b != nil {
		oracle = b
	}
	interp := &query.Interpreter{Oracle: oracle, Warnings: os.Stderr}

	srv := server.New(serverConfig(cmd), client, interp, logger.Sugar())
	srv.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
