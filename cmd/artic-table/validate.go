package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd validates a config file without contacting the API.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an artic-table configuration file.

This command parses the YAML, expands environment variables, applies
defaults and validates all fields. Nothing is fetched.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  artic-table validate -c artic.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	redis := "disabled"
	if cfg.Redis.Enabled() {
		redis = fmt.Sprintf("%s (db %d)", cfg.Redis.Addr, cfg.Redis.DB)
	}
	metricsAddr := cfg.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = "disabled"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  API:        %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "  User-Agent: %s\n", cfg.UserAgent)
	fmt.Fprintf(out, "  Page limit: %d\n", cfg.PageLimit)
	fmt.Fprintf(out, "  Timeout:    %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  Redis:      %s\n", redis)
	fmt.Fprintf(out, "  Metrics:    %s\n", metricsAddr)
	fmt.Fprintf(out, "  Prefetch:   %d workers\n", cfg.Prefetch.Concurrency)

	return nil
}
