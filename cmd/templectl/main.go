// Command templectl performs operator tasks against the configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"temple-services-backend/internal/app"
	"temple-services-backend/internal/config"
	"temple-services-backend/internal/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "templectl",
	Short:         "Operator tool for the temple services backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.dev.yaml", "path to configuration file")
	rootCmd.AddCommand(recalcCmd, grantAdminCmd, revokeAdminCmd, tokenCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	// stdout carries the command's JSON output.
	logger.InitializeWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// withServices opens the store, builds the service layer and runs fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, b *app.Backend, s *app.Services) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	b, err := app.Open(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, cfg, b, app.NewServices(b.Store, cfg))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
