package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/racehub/internal/config"
	"github.com/vovakirdan/racehub/internal/events"
	"github.com/vovakirdan/racehub/internal/platform/tui"
	"github.com/vovakirdan/racehub/internal/race"
	"github.com/vovakirdan/racehub/internal/storage"
	"github.com/vovakirdan/racehub/internal/transport/ws"
)

var (
	flagAddr    string
	flagSSHAddr string
	flagHostKey string
	flagNATSURL string
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the race coordinator and websocket server",
	Long: `Run the race session server.

Players connect to the websocket endpoint (default /game) and are placed in
the shared lobby. Finished races are written to the results database and,
when a NATS URL is configured, published to the results subject.

The optional SSH monitor gives operators a read-only live view of the
session and the stored results.

Examples:
  racehub serve                          # Listen on :8080
  racehub serve --addr :9000             # Listen on port 9000
  racehub serve --ssh :2222              # Also start the SSH monitor
  racehub serve --db ""                  # Disable result storage
  racehub serve --nats nats://localhost:4222

Operators can connect with:
  ssh localhost -p 2222`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "Enable the SSH monitor on this address")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to SSH host key file")
	serveCmd.Flags().StringVar(&flagNATSURL, "nats", "", "NATS server URL for the results feed")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	if flagSSHAddr != "" {
		cfg.Monitor.Addr = flagSSHAddr
		cfg.Monitor.Enabled = true
	}
	if flagHostKey != "" {
		cfg.Monitor.HostKey = flagHostKey
	}
	if flagNATSURL != "" {
		cfg.NATS.URL = flagNATSURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord := race.NewCoordinator(cfg.CoordinatorConfig(), logger.WithPrefix("coordinator"))

	// Interfaces stay nil when storage is disabled.
	var (
		apiStore     ws.ResultStore
		monitorStore tui.ResultStore
	)
	if cfg.Storage.DBPath != "" {
		store, openErr := storage.Open(cfg.Storage.DBPath)
		if openErr != nil {
			return openErr
		}
		defer store.Close()
		coord.AddRecorder(store)
		apiStore, monitorStore = store, store
		logger.Info("result storage enabled", "path", cfg.Storage.DBPath)
	}

	if cfg.NATS.URL != "" {
		pubCfg := events.DefaultConfig()
		pubCfg.URL = cfg.NATS.URL
		pubCfg.Subject = cfg.NATS.Subject
		publisher, pubErr := events.NewPublisher(pubCfg, logger.WithPrefix("nats"))
		if pubErr != nil {
			return pubErr
		}
		defer publisher.Close()
		coord.AddRecorder(publisher)
		logger.Info("results feed enabled", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	}

	coord.Start(ctx)
	defer coord.Stop()

	wsServer := ws.NewServer(ws.Config{
		WSPath:         cfg.Server.WSPath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WriteTimeout:   cfg.Connection.WriteTimeoutDuration(),
		ReadTimeout:    cfg.Connection.ReadTimeoutDuration(),
		PingInterval:   cfg.Connection.PingIntervalDuration(),
		MaxMessageSize: cfg.Connection.MaxMessageSize,
		SendBuffer:     cfg.Connection.SendBuffer,
	}, coord, apiStore, logger.WithPrefix("ws"))

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      wsServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "ws_path", cfg.Server.WSPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.Monitor.Enabled {
		sshCfg := tui.DefaultSSHServerConfig()
		sshCfg.Address = cfg.Monitor.Addr
		sshCfg.HostKeyPath = cfg.Monitor.HostKey
		sshCfg.Refresh = cfg.Monitor.RefreshDuration()

		monitor, sshErr := tui.NewSSHServer(sshCfg, coord, monitorStore, logger.WithPrefix("ssh"))
		if sshErr != nil {
			return sshErr
		}
		go func() {
			if err := monitor.ListenAndServe(ctx); err != nil {
				errCh <- fmt.Errorf("ssh monitor: %w", err)
			}
		}()
		logger.Info("connect with: ssh localhost -p " + portOf(monitor.Addr()))
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case runErr = <-errCh:
		logger.Error("server failed", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "err", err)
	}
	return runErr
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig) (*log.Logger, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "racehub",
	})
	if cfg.Level != "" {
		level, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		logger.SetLevel(level)
	}
	return logger, nil
}

// portOf returns the port part of a listen address such as ":2222".
func portOf(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return addr
}
