// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/plasma-kg/internal/container"
	"github.com/pdiddy/plasma-kg/internal/sparql"
)

const (
	defaultFusekiImage     = "stain/jena-fuseki"
	defaultFusekiContainer = "plasma-fuseki"
	defaultFusekiDataset   = "plasma"
	defaultFusekiAdminPass = "admin123"
	fusekiReadyWait        = 60 * time.Second
)

var fusekiCmd = &cobra.Command{
	Use:   "fuseki",
	Short: "Manage a local Fuseki triple store container",
	Long: `Fuseki starts and stops a local Jena Fuseki container for development,
using docker or podman, whichever is available. The container publishes
port 3030 and auto-creates the dataset the pipeline loads into.`,
}

// --- up subcommand ---

var fusekiUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the Fuseki container and wait until it answers",
	RunE:  runFusekiUp,
}

func runFusekiUp(cmd *cobra.Command, args []string) error {
	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	image, _ := cmd.Flags().GetString("image")
	dataset, _ := cmd.Flags().GetString("dataset")

	if up, err := rt.Running(name); err != nil {
		return err
	} else if up {
		fmt.Fprintf(os.Stdout, "%s is already running\n", name)
		return nil
	}

	if err := rt.ImageExists(image); err != nil {
		return fmt.Errorf("%w (pull it with: %s pull %s)", err, rt.Name(), image)
	}

	password := secretDefault(fusekiPasswordSecret, viper.GetString("fuseki.password"))
	if password == "" {
		password = defaultFusekiAdminPass
	}

	spec := container.Spec{
		Image: image,
		Name:  name,
		Ports: []string{"3030:3030"},
		Env: map[string]string{
			"ADMIN_PASSWORD":   password,
			"FUSEKI_DATASET_1": dataset,
		},
	}
	if err := rt.Start(spec); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "started %s via %s\n", name, rt.Name())

	cfg := fusekiConfig(cmd)
	client := sparql.NewClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), fusekiReadyWait)
	defer cancel()
	for client.Ping(ctx) != nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("fuseki did not answer within %s", fusekiReadyWait)
		case <-time.After(time.Second):
		}
	}

	fmt.Fprintf(os.Stdout, "fuseki answering at %s\n", cfg.QueryEndpoint)
	return nil
}

// --- down subcommand ---

var fusekiDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the Fuseki container",
	RunE:  runFusekiDown,
}

func runFusekiDown(cmd *cobra.Command, args []string) error {
	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	if up, err := rt.Running(name); err != nil {
		return err
	} else if !up {
		fmt.Fprintf(os.Stdout, "%s is not running\n", name)
		return nil
	}

	if err := rt.Stop(name); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "stopped %s\n", name)
	return nil
}

// --- status subcommand ---

var fusekiStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the Fuseki container is up and answering",
	RunE:  runFusekiStatus,
}

func runFusekiStatus(cmd *cobra.Command, args []string) error {
	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	up, err := rt.Running(name)
	if err != nil {
		return err
	}
	if !up {
		fmt.Fprintf(os.Stdout, "%s is not running\n", name)
		return nil
	}

	client := sparql.NewClient(fusekiConfig(cmd))
	if err := client.Ping(context.Background()); err != nil {
		fmt.Fprintf(os.Stdout, "%s is running but not answering queries yet\n", name)
		return nil
	}
	fmt.Fprintf(os.Stdout, "%s is running and answering queries\n", name)
	return nil
}

func init() {
	fusekiCmd.PersistentFlags().String("name", defaultFusekiContainer, "container name")
	fusekiCmd.PersistentFlags().String("image", defaultFusekiImage, "Fuseki container image")
	fusekiCmd.PersistentFlags().String("dataset", defaultFusekiDataset, "dataset to auto-create")

	addFusekiFlags(fusekiUpCmd)
	addFusekiFlags(fusekiStatusCmd)

	fusekiCmd.AddCommand(fusekiUpCmd)
	fusekiCmd.AddCommand(fusekiDownCmd)
	fusekiCmd.AddCommand(fusekiStatusCmd)

	rootCmd.AddCommand(fusekiCmd)
}
