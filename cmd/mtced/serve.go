// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to the TOML config file")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the maintenance agent daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx)
}
