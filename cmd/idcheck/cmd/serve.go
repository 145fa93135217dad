package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/config"
	"github.com/MeKo-Tech/idcheck/internal/server"
	"github.com/spf13/cobra"
)

const rateLimitCleanupInterval = 10 * time.Minute

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP validation API",
		Long: `Start an HTTP server that validates uploaded ID document photos.

The server provides the following endpoints:
  POST /validate        - validate one upload (multipart field "file")
  POST /validate/batch  - validate several uploads (multipart field "files")
  GET  /ws/validate     - websocket stream of validation requests
  GET  /health          - health check
  GET  /info            - scoring rules and OCR engine
  GET  /metrics         - Prometheus metrics

Examples:
  idcheck serve
  idcheck serve --port 8080
  idcheck serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd)
		},
	}

	cmd.Flags().StringP("host", "H", "localhost", "server host")
	cmd.Flags().IntP("port", "p", 8080, "server port")
	cmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	cmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	cmd.Flags().Int("timeout", 30, "per-request validation timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	cmd.Flags().Int("workers", 4, "workers for batch uploads")
	// Rate limiting flags
	cmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	cmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	cmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	cmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	cmd.Flags().Int("max-data-per-day", 1024, "maximum upload volume per day per client in MB")
	return cmd
}

// serverConfigFromFlags applies changed serve flags on top of the resolved
// configuration.
func serverConfigFromFlags(cfg config.ServerConfig, cmd *cobra.Command) config.ServerConfig {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		cfg.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		cfg.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		cfg.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		cfg.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		cfg.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("rate-limit-enabled") {
		cfg.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		cfg.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		cfg.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		cfg.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		cfg.RateLimit.MaxDataPerDayMB, _ = f.GetInt("max-data-per-day")
	}
	return cfg
}

// newAPIServer wires the validation pipeline and optional rate limiter into
// a server.Server.
func (a *app) newAPIServer(sc config.ServerConfig, workers int) (*server.Server, error) {
	if sc.Port < 1 || sc.Port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", sc.Port)
	}
	if sc.TimeoutSec <= 0 {
		return nil, fmt.Errorf("invalid timeout: %d (must be positive)", sc.TimeoutSec)
	}

	p, err := a.newPipeline()
	if err != nil {
		return nil, err
	}

	srvCfg := server.DefaultConfig()
	srvCfg.CORSOrigin = sc.CORSOrigin
	srvCfg.MaxUploadMB = int64(sc.MaxUploadMB)
	srvCfg.Timeout = time.Duration(sc.TimeoutSec) * time.Second
	srvCfg.Workers = workers
	if rl := sc.RateLimit; rl.Enabled {
		srvCfg.RateLimiter = server.NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour,
			rl.MaxRequestsPerDay, int64(rl.MaxDataPerDayMB)*1024*1024)
	}
	return server.NewServer(p, srvCfg), nil
}

func (a *app) runServe(cmd *cobra.Command) error {
	sc := serverConfigFromFlags(a.cfg.Server, cmd)
	workers := a.cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}

	apiServer, err := a.newAPIServer(sc, workers)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	timeout := time.Duration(sc.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", sc.Host, sc.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	if rl := apiServer.RateLimiter(); rl != nil {
		go func() {
			ticker := time.NewTicker(rateLimitCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := rl.Cleanup(24 * time.Hour); n > 0 {
						slog.Debug("rate limiter cleanup", "removed_clients", n)
					}
				}
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting validation server", "host", sc.Host, "port", sc.Port,
			"ocr_engine", a.cfg.OCR.Engine, "rate_limit", sc.RateLimit.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", sc.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(sc.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
