package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ops-chat/cluster"
	"ops-chat/commands"
	"ops-chat/contract"
	"ops-chat/infrastructure/ws"
	"ops-chat/internal"
	"ops-chat/observability"
	"ops-chat/repositories"
	"ops-chat/runtime"
	"ops-chat/runtime/workers"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern keeps 'defer' statements (like the database close) running
// before the process exits, and keeps initialization testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core wiring
	monitor := observability.NewMonitor(logger)
	sessions := runtime.NewRegistry(logger)
	repository := repositories.NewMessageRepository(db, logger)

	commandRegistry, err := commands.NewRegistry(commands.Builtin()...)
	if err != nil {
		return exitConfig, fmt.Errorf("command registry: %w", err)
	}

	var clusterClient contract.ICluster
	clusterClient, err = cluster.NewClient(config.KubeconfigPath)
	if err != nil {
		// Chat stays usable; cluster commands will answer with API errors.
		logger.Warn("No cluster configuration, running degraded", "error", err)
		clusterClient = cluster.Unavailable{Reason: err}
	}
	namespace := cluster.DetectNamespace(config.Namespace)
	logger.Info("Operating namespace resolved", "namespace", namespace)

	dispatcher := runtime.NewDispatcher(
		logger, repository, sessions, commandRegistry,
		clusterClient, namespace, config.CommandTimeout, monitor,
	)

	if logger.Enabled(ctx, slog.LevelDebug) && config.DebugPort > 0 {
		url := fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort)
		logger.Info("Debug Badger inspector available", "url", url)
		internal.StartDebugServer(db, config.DebugPort, internal.MessageMapper, monitor.StatsProvider)
	}

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Error (gateway & supervisor)
	errChan := make(chan error, 2)

	// 5. Background workers under supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		workers.NewMonitoringWorker(monitor, config.MetricInterval),
		workers.NewGarbageCollectionWorker(logger, db, config.GCInterval),
	)
	go func() {
		logger.Info("Starting supervisor...")
		sup.Run(ctx)
	}()

	// 6. WebSocket gateway
	gateway := ws.NewServer(
		logger, dispatcher, sessions, monitor,
		config.Addr(), config.History(), config.ConnectionBufferSize,
	)
	go func() {
		if err := gateway.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	// 7. Wait for Stop or Error
	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	// Active connections get closed, in-flight command handlers drain.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.CommandTimeout)
	defer cancelShutdown()
	if err := gateway.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Gateway shutdown incomplete", "error", err)
	}
	dispatcher.Drain()
	sup.Stop()
	logger.Info("Program stopped cleanly", "stats", monitor.GetLatest())

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
