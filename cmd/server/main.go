package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orato-ai/speech-scorer/internal/analysis"
	"github.com/orato-ai/speech-scorer/internal/calibration"
	"github.com/orato-ai/speech-scorer/internal/config"
	"github.com/orato-ai/speech-scorer/internal/observability"
	"github.com/orato-ai/speech-scorer/internal/session"
	"github.com/orato-ai/speech-scorer/internal/settings"
	"github.com/orato-ai/speech-scorer/internal/stt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("global_settings", cfg.GlobalSettingsPath).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Speech Scorer Service starting")

	// Metric settings resolve through layered files watched for changes
	resolver := settings.NewResolver()
	pollInterval := settings.WithInterval(time.Duration(cfg.SettingsPollInterval) * time.Second)

	globalWatcher := settings.NewWatcher(cfg.GlobalSettingsPath, settings.LayerGlobal, resolver, pollInterval)
	defer globalWatcher.Stop()

	if cfg.UserSettingsPath != "" {
		userWatcher := settings.NewWatcher(cfg.UserSettingsPath, settings.LayerUser, resolver, pollInterval)
		defer userWatcher.Stop()
	}

	// Calibration profiles: redis when configured, in-process otherwise.
	// A failed redis connection degrades to memory rather than refusing
	// to score recordings.
	var store calibration.Store
	if cfg.RedisURL != "" {
		redisStore, err := calibration.NewRedisStore(cfg.RedisURL, time.Duration(cfg.CalibrationTTL)*time.Second)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, using in-memory calibration store")
			store = calibration.NewMemoryStore(time.Duration(cfg.CalibrationTTL) * time.Second)
		} else {
			store = redisStore
		}
	} else {
		store = calibration.NewMemoryStore(time.Duration(cfg.CalibrationTTL) * time.Second)
	}
	defer store.Close()

	// Transcription is optional; without a key results simply carry no
	// observed word counts.
	var transcriber stt.Transcriber
	if cfg.DeepgramAPIKey != "" {
		transcriber = stt.NewDeepgramTranscriber(cfg)
		logger.Info().Str("model", cfg.DeepgramModel).Msg("Deepgram word counting enabled")
	} else {
		logger.Info().Msg("No Deepgram API key, word counting disabled")
	}

	engine := analysis.NewEngine(resolver, store)

	// HTTP surface
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/stream", session.Handler(cfg, engine, transcriber))
	mux.HandleFunc("/v1/analyze", session.AnalyzeHandler(cfg, engine, transcriber))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint
	storeCheck := observability.DependencyCheck{
		Name: "calibration_store",
		Check: func(ctx context.Context) (bool, error) {
			if err := store.Ping(); err != nil {
				return false, err
			}
			return true, nil
		},
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(storeCheck))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/v1/stream", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
