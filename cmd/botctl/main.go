package main

import (
	"fmt"
	"os"

	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/database"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "botctl",
	Short: "Botdesk administration CLI",
	Long: `botctl manages a botdesk database directly, without going through the API.

It reads the same environment (and .env file) as the server.

Examples:
  botctl migrate
  botctl seed
  botctl bots list --category games
  botctl keys issue --bot 3 --count 20`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(botsCmd)
	rootCmd.AddCommand(keysCmd)

	rootCmd.PersistentFlags().StringP("env-file", "f", "", "Path to the .env file (overrides ENV_FILE)")
}

// openDB loads configuration and connects. Commands other than migrate expect a
// migrated schema.
func openDB(cmd *cobra.Command) (*gorm.DB, *config.Config, error) {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := os.Setenv("ENV_FILE", envFile); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}
