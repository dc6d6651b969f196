package main

import (
	"os/signal"
	"syscall"

	"github.com/Sternrassler/artic-table/internal/browse"
	"github.com/Sternrassler/artic-table/pkg/logging"
	"github.com/Sternrassler/artic-table/pkg/pagination"
	"github.com/spf13/cobra"
)

// browseCmd runs the interactive table.
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse artworks interactively",
	Long: `Show the artworks table and read commands from standard input.

Type help at the prompt for the list of commands. The session ends on
quit, end of input, Ctrl+C or SIGTERM.

Example:
  artic-table browse
  artic-table browse --rows 25 -c artic.yaml`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().Int("rows", 0, "rows per page (overrides page_limit)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	driver := pagination.NewDriver(a.client, logging.NewLogger("pagination"))
	session := browse.New(driver, cmd.OutOrStdout(), a.logger)

	return session.Run(ctx, cmd.InOrStdin())
}
