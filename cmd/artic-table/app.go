package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/artic-table/pkg/client"
	"github.com/Sternrassler/artic-table/pkg/config"
	"github.com/Sternrassler/artic-table/pkg/logging"
	"github.com/Sternrassler/artic-table/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	redisPingTimeout = 2 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// app holds what every command that talks to the API needs.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	redis   *redis.Client
	client  *client.Client
	metrics *http.Server
}

// loadConfig reads the --config flag and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Lookup("rows") != nil && cmd.Flags().Changed("rows") {
		rows, _ := cmd.Flags().GetInt("rows")
		if rows < 1 || rows > config.MaxPageLimit {
			return nil, fmt.Errorf("--rows must be between 1 and %d, got %d", config.MaxPageLimit, rows)
		}
		cfg.PageLimit = rows
	}
	return cfg, nil
}

// newApp loads configuration, sets up logging, connects to Redis when
// configured and starts the metrics server when metrics_addr is set.
// Redis being unreachable is not fatal: the client runs without cache.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logging.Setup(logging.FromSettings(cfg.Log.Level, cfg.Log.Pretty))
	logger := logging.NewLogger("cli")

	a := &app{cfg: cfg, logger: logger}

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()

		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable - running without cache")
			rdb.Close()
		} else {
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
			a.redis = rdb
		}
	}

	clientCfg := client.DefaultConfig(a.redis, cfg.UserAgent)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.PageLimit = cfg.PageLimit
	clientCfg.Timeout = cfg.Timeout.Duration()

	a.client, err = client.New(clientCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if cfg.MetricsAddr != "" {
		a.metrics = metrics.NewServer(cfg.MetricsAddr, a.ready)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	return a, nil
}

// ready reports Redis reachability for /ready.
func (a *app) ready(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx).Err()
}

// Close stops the metrics server and releases connections.
func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
		cancel()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
