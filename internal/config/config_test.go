package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestLoad_NoAPIKeyIsAllowed(t *testing.T) {
	os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected transcription to be optional, got %v", err)
	}
	if cfg.DeepgramAPIKey != "" {
		t.Errorf("Expected empty DeepgramAPIKey, got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.GlobalSettingsPath != "configs/settings.yaml" {
		t.Errorf("Expected default GlobalSettingsPath 'configs/settings.yaml', got '%s'", cfg.GlobalSettingsPath)
	}

	if cfg.SettingsPollInterval != 5 {
		t.Errorf("Expected default SettingsPollInterval 5, got %d", cfg.SettingsPollInterval)
	}

	if cfg.RedisURL != "" {
		t.Errorf("Expected default RedisURL empty, got '%s'", cfg.RedisURL)
	}

	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}

	if cfg.DeepgramLanguage != "en" {
		t.Errorf("Expected default DeepgramLanguage 'en', got '%s'", cfg.DeepgramLanguage)
	}

	if cfg.DeepgramTimeout != 30 {
		t.Errorf("Expected default DeepgramTimeout 30, got %d", cfg.DeepgramTimeout)
	}

	if cfg.MaxRecordingSeconds != 300 {
		t.Errorf("Expected default MaxRecordingSeconds 300, got %d", cfg.MaxRecordingSeconds)
	}

	if cfg.VADEnergyThreshold != 500.0 {
		t.Errorf("Expected default VADEnergyThreshold 500.0, got %f", cfg.VADEnergyThreshold)
	}

	if cfg.VADSpeechFrames != 2 {
		t.Errorf("Expected default VADSpeechFrames 2, got %d", cfg.VADSpeechFrames)
	}

	if cfg.VADSilenceFrames != 10 {
		t.Errorf("Expected default VADSilenceFrames 10, got %d", cfg.VADSilenceFrames)
	}
}

func TestLoad_InvalidRecordingCap(t *testing.T) {
	os.Setenv("MAX_RECORDING_SECONDS", "0")
	defer os.Unsetenv("MAX_RECORDING_SECONDS")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for zero recording cap")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("REDIS_URL", "redis://localhost:6379/2")
	defer os.Unsetenv("REDIS_URL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.RedisURL != "redis://localhost:6379/2" {
		t.Errorf("Expected RedisURL 'redis://localhost:6379/2', got '%s'", cfg.RedisURL)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}

	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}

	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.RetryInitialBackoff != 100 {
		t.Errorf("Expected default RetryInitialBackoff 100, got %d", cfg.RetryInitialBackoff)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}

	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}
