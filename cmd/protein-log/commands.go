package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"protein-log/internal/estimator"
	"protein-log/internal/server"
)

const version = "1.0.0"

func newRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "protein-log",
		Short:         "Daily protein intake tracker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, cmd)
		},
	}
	root.PersistentFlags().String("config", "", "Config file (yaml, json or toml)")

	root.AddCommand(newServeCommand(v))
	root.AddCommand(newEstimateCommand())
	return root
}

// loadConfig binds flags and PROTEIN_LOG_* environment variables, then
// reads the config file if one was given.
func loadConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix("protein_log")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the protein log tools over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "0.0.0.0", "Host address")
	flags.Int("port", 8012, "Port for HTTP transport")
	flags.String("db-path", "/data/protein-log.db", "Database path")
	flags.String("cors-origins", "*", "Allowed CORS origins, comma separated")
	flags.Float64("rate-limit", 20, "Requests per second per client (0 disables)")
	flags.Int("rate-burst", 40, "Rate limit burst")
	flags.Bool("trust-proxy", false, "Key rate limits on X-Forwarded-For / X-Real-IP (only behind a trusted proxy)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	logger, err := newLogger(v.GetString("log-level"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg := &server.Config{
		Host:        v.GetString("host"),
		Port:        v.GetInt("port"),
		DBPath:      v.GetString("db-path"),
		CORSOrigins: v.GetString("cors-origins"),
		RateLimit:   v.GetFloat64("rate-limit"),
		RateBurst:   v.GetInt("rate-burst"),
		TrustProxy:  v.GetBool("trust-proxy"),
	}

	srv, err := server.NewProteinLogServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server error", "error", serveErr)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stopErr := srv.Stop(shutdownCtx)
	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}
	if stopErr != nil {
		return fmt.Errorf("error during shutdown: %w", stopErr)
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

func newEstimateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <description...>",
		Short: "Estimate grams of protein from a food description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := estimator.Detect(strings.Join(args, " "))
			if res.Rule == "" {
				return errors.New("no known food recognised")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", res.Grams, res.Rule)
			return nil
		},
	}
}
