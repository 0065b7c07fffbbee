package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/imdbload/internal/config"
	"github.com/vvka-141/imdbload/internal/logging"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// loadProjectConfig loads .env and then imdbload.yaml. An explicit path must
// exist; the default ./imdbload.yaml is optional and yields a nil config.
func loadProjectConfig(path string) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(".")
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return cfg, nil
}

// resolveEffectiveTimeout returns the flag value when set, else the
// imdbload.yaml timeout, else the flag default.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if cmd.Flags().Changed("timeout") {
		return flagTimeout, nil
	}
	d, err := projectCfg.TimeoutDuration()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", err, imdbload.ErrInvalidConfig)
	}
	if d > 0 {
		return d, nil
	}
	return flagTimeout, nil
}

// pickString applies flag > environment > imdbload.yaml > default.
func pickString(cmd *cobra.Command, flag, flagValue, envKey, fileValue, def string) string {
	if cmd.Flags().Changed(flag) {
		return flagValue
	}
	if v := os.Getenv(envKey); envKey != "" && v != "" {
		return v
	}
	if fileValue != "" {
		return fileValue
	}
	return def
}

// pickInt is pickString for integers. A malformed environment value is an
// error rather than silently ignored.
func pickInt(cmd *cobra.Command, flag string, flagValue int, envKey string, fileValue, def int) (int, error) {
	if cmd.Flags().Changed(flag) {
		return flagValue, nil
	}
	if v := os.Getenv(envKey); envKey != "" && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid $%s value '%s': must be an integer: %w", envKey, v, imdbload.ErrInvalidConfig)
		}
		return n, nil
	}
	if fileValue != 0 {
		return fileValue, nil
	}
	return def, nil
}

// signalContext is canceled on SIGINT/SIGTERM or when timeout elapses.
// A zero timeout means no deadline.
func signalContext(timeout time.Duration, what string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling %s...\n", what)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func newConsoleLogger(cmd *cobra.Command) imdbload.Logger {
	return logging.NewConsoleLogger(getVerboseFlag(cmd))
}
