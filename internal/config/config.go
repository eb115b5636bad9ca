package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the speech scoring service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Stored scoring settings. Both paths are optional; a path that does
	// not exist resolves to the built-in defaults until the file appears.
	GlobalSettingsPath   string `envconfig:"GLOBAL_SETTINGS_PATH" default:"configs/settings.yaml"`
	UserSettingsPath     string `envconfig:"USER_SETTINGS_PATH" default:""`
	SettingsPollInterval int    `envconfig:"SETTINGS_POLL_INTERVAL" default:"5"` // seconds

	// Device calibration store. Empty REDIS_URL keeps profiles in memory.
	RedisURL       string `envconfig:"REDIS_URL" default:""`
	CalibrationTTL int    `envconfig:"CALIBRATION_TTL" default:"0"` // seconds, 0 = no expiry

	// Deepgram transcription. The API key is optional: without it the
	// service scores recordings but reports no observed word counts.
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`  // Language code (en, es, fr, etc.)
	DeepgramTimeout  int    `envconfig:"DEEPGRAM_TIMEOUT" default:"30"`   // seconds to wait for a transcript

	// Recording session configuration
	MaxRecordingSeconds int     `envconfig:"MAX_RECORDING_SECONDS" default:"300"`  // Hard cap per recording
	VADEnergyThreshold  float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold
	VADSpeechFrames     int     `envconfig:"VAD_SPEECH_FRAMES" default:"2"`        // Frames of energy to open a segment
	VADSilenceFrames    int     `envconfig:"VAD_SILENCE_FRAMES" default:"10"`      // Frames of silence to close a segment

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.MaxRecordingSeconds <= 0 {
		return nil, fmt.Errorf("MAX_RECORDING_SECONDS must be positive, got %d", cfg.MaxRecordingSeconds)
	}
	if cfg.SettingsPollInterval <= 0 {
		return nil, fmt.Errorf("SETTINGS_POLL_INTERVAL must be positive, got %d", cfg.SettingsPollInterval)
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
