// Package main is the entry point for the artic-table CLI.
//
// Usage:
//
//	artic-table browse                      # Interactive table on the terminal
//	artic-table fetch --from 1 --pages 5    # Print a page range as YAML
//	artic-table serve --addr :8080          # Serve pages over HTTP
//	artic-table validate -c artic.yaml      # Validate configuration
//	artic-table version                     # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "artic-table",
	Short: "Browse and select artworks from the Art Institute of Chicago API",
	Long: `artic-table shows the artworks collection of the Art Institute of
Chicago as a paginated table with a checkbox per row.

Rows stay selected while you page back and forth, and "select N" checks
the first N rows starting at the top of the current page, continuing
onto the following pages when N is larger than a page.

Quick start:
  artic-table browse
  artic-table browse -c artic.yaml   # with Redis caching, see validate

Example config:
  user_agent: my-app/1.0 (me@example.com)
  page_limit: 12
  redis:
    addr: ${REDIS_URL:-}`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this artic-table binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "artic-table %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (defaults apply when omitted)")
	rootCmd.AddCommand(versionCmd)
}
