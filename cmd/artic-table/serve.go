package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/artic-table/pkg/client"
	"github.com/Sternrassler/artic-table/pkg/metrics"
	"github.com/Sternrassler/artic-table/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// serveCmd exposes pages through the cached, rate limited client.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve artworks pages over HTTP",
	Long: `Serve artworks pages as JSON, shaped like the upstream API.

GET /artworks?page=N goes through the same cache and rate limit gate as
browse, so several local tools can share one upstream quota. /health,
/ready and /metrics are served on the same address.

Example:
  artic-table serve --addr :8080 -c artic.yaml
  curl 'localhost:8080/artworks?page=2'`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	mux := metrics.NewMux(a.ready)
	mux.Handle("/artworks", pageHandler(a.client, a.cfg.Timeout.Duration(), a.logger))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", addr).Str("user_agent", a.cfg.UserAgent).Msg("Serving artworks")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pageHandler serves GET /artworks?page=N. A missing page parameter means
// page 1.
func pageHandler(source pagination.PageFetcher, timeout time.Duration, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, fmt.Sprintf("invalid page %q", raw), http.StatusBadRequest)
				return
			}
			page = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		result, err := source.FetchPage(ctx, page)
		if err != nil {
			status := upstreamStatus(err)
			logger.Warn().Err(err).Int("page", page).Int("status", status).Msg("Page request failed")
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Warn().Err(err).Int("page", page).Msg("Failed to write response")
		}
	}
}

// upstreamStatus maps a fetch failure to the status served to callers.
func upstreamStatus(err error) int {
	var fe *client.FetchError
	if !errors.As(err, &fe) {
		return http.StatusBadGateway
	}
	switch {
	case fe.Reason == client.FetchReasonBlocked:
		return http.StatusTooManyRequests
	case fe.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	case fe.Reason == client.FetchReasonNetwork && errors.Is(fe.Err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
