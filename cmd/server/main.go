package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/memorygame/internal/api"
	"github.com/mcoot/memorygame/internal/config"
	"github.com/mcoot/memorygame/internal/factory"
	"github.com/mcoot/memorygame/internal/middleware"
	"github.com/mcoot/memorygame/internal/services/auth"
	pgstorage "github.com/mcoot/memorygame/internal/storage/postgres"
	"github.com/mcoot/memorygame/internal/storage/postgres/migrations"
	redisstorage "github.com/mcoot/memorygame/internal/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:           "memgame-server",
		Short:         "Score and leaderboard service for the memory card game",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Resolve(cmd.Flags()); err != nil {
				return err
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	cfg.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(cfg))
	cmd.CompletionOptions.HiddenDefaultCmd = true

	return cmd
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cfg)

			store, err := pgstorage.New(cmd.Context(), pgstorage.Config{DSN: cfg.PostgresDSN})
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			group, err := migrations.Migrate(cmd.Context(), store.DB())
			if err != nil {
				return err
			}

			if group.IsZero() {
				logger.Info("database schema is up to date")
				return nil
			}
			logger.Info("applied migrations", slog.String("group", group.String()))
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.JWTSecret == "" {
		logger.Warn("no jwt-secret configured, using the insecure development secret")
	}

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.Storage,
		AuthConfig: auth.Config{
			JWTSecret:         cfg.JWTSecret,
			TokenTTL:          cfg.TokenTTL,
			MinPasswordLength: cfg.MinPasswordLength,
		},
	}

	switch cfg.Storage {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	case config.StoragePostgres:
		factoryCfg.PostgresConfig = &pgstorage.Config{
			DSN:         cfg.PostgresDSN,
			AutoMigrate: cfg.AutoMigrate,
		}
	}

	app, err := factory.New(ctx, factoryCfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		LeaderboardService: app.LeaderboardService,
		WriteLimiter:       limiter,
		AllowedOrigins:     cfg.AllowedOrigins,
		ExposeMetrics:      cfg.Metrics,
	})

	server := api.NewServer(router, api.ServerConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.Shutdown(context.Background()); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.Level()
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
