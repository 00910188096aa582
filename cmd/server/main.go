package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "echo",
	Short: "Echo - night planning, morning execution",
	Long: `Echo runs the night/morning mode controller behind an HTTP API.

At night you plan tomorrow's missions; arming the protocol unlocks the
morning board once the morning window opens. When the day rolls back into
night, unfinished missions are cleared and crushed ones are archived.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("CONFIG_FILE", configFile)
		}
		return nil
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and per-user mode controllers",
	RunE:  runServe,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current mode of a running server",
	RunE:  runStatus,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema for the configured backend",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")

	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8088", "server base URL")
	statusCmd.Flags().StringVar(&statusToken, "token", "", "bearer token (default AUTH_TOKEN)")

	rootCmd.AddCommand(serveCmd, statusCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
