package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Clebio2030/zaprundeploy/internal/config"
	"github.com/Clebio2030/zaprundeploy/internal/convert"
	"github.com/Clebio2030/zaprundeploy/internal/metrics"
	"github.com/Clebio2030/zaprundeploy/internal/notify"
	"github.com/Clebio2030/zaprundeploy/internal/server"
	"github.com/Clebio2030/zaprundeploy/internal/store"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-message-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("address", cfg.Server.Address),
		slog.String("public_dir", cfg.Storage.PublicDir),
		slog.String("database_path", cfg.Storage.DatabasePath),
		slog.String("transcode_codec", cfg.Transcode.Codec),
		slog.String("transcode_bitrate", cfg.Transcode.Bitrate),
		slog.Int("upload_max_size_mb", cfg.Upload.MaxSizeMB),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize message store
	messages, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("Failed to open message store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Message store initialized",
		slog.String("database_path", cfg.Storage.DatabasePath),
	)

	// Initialize notification hub
	hub := notify.NewHub(logger)
	logger.Info("Notification hub initialized")

	// Initialize conversion pipeline
	transcoder := &convert.FFmpegTranscoder{
		Binary:  cfg.Transcode.FFmpegBinary,
		Codec:   cfg.Transcode.Codec,
		Bitrate: cfg.Transcode.Bitrate,
	}
	prober := &convert.FFprobeProber{
		Binary: cfg.Transcode.FFprobeBinary,
	}
	pipeline := convert.NewServerPipeline(transcoder, prober,
		cfg.Transcode.Codec, cfg.Transcode.GetTimeoutDuration(), logger)
	logger.Info("Conversion pipeline initialized",
		slog.String("ffmpeg", cfg.Transcode.FFmpegBinary),
		slog.String("ffprobe", cfg.Transcode.FFprobeBinary),
	)

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg, logger, pipeline, messages, hub, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	// Start HTTP server
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Disconnect websocket clients
	hub.Stop()

	// Close the message store
	if err := messages.Close(); err != nil {
		logger.Error("Error closing message store", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
