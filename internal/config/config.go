package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string
	Port           string

	OpenAIKey        string
	WhisperServerURL string
	WhisperModelSize string

	TempDir string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Transcription TranscriptionConfig
}

type TranscriptionConfig struct {
	PrimaryEngine        string `yaml:"primary_engine"`
	FallbackEngine       string `yaml:"fallback_engine"`
	FallbackEnabled      bool   `yaml:"fallback_enabled"`
	EngineTimeoutSeconds int    `yaml:"engine_timeout_seconds"`
	LocalConcurrency     int64  `yaml:"local_concurrency"`
}

// EngineTimeout returns the per-engine call timeout.
func (t TranscriptionConfig) EngineTimeout() time.Duration {
	return time.Duration(t.EngineTimeoutSeconds) * time.Second
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		Port:                     os.Getenv("PORT"),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		WhisperServerURL:         os.Getenv("WHISPER_SERVER_URL"),
		WhisperModelSize:         os.Getenv("WHISPER_MODEL_SIZE"),
		TempDir:                  os.Getenv("STT_TEMP_DIR"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Transcription: TranscriptionConfig{
			PrimaryEngine:   os.Getenv("PRIMARY_ENGINE"),
			FallbackEngine:  os.Getenv("FALLBACK_ENGINE"),
			FallbackEnabled: envBool("ENABLE_DUAL_ENGINE", true),
		},
	}

	// Load from YAML file if available
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "stt-server"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.WhisperModelSize == "" {
		cfg.WhisperModelSize = "base"
	}

	cfg.SetTranscriptionDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Transcription struct {
			PrimaryEngine        string `yaml:"primary_engine"`
			FallbackEngine       string `yaml:"fallback_engine"`
			FallbackEnabled      *bool  `yaml:"fallback_enabled"`
			EngineTimeoutSeconds int    `yaml:"engine_timeout_seconds"`
			LocalConcurrency     int64  `yaml:"local_concurrency"`
		} `yaml:"transcription"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlConfig.Transcription.PrimaryEngine != "" {
		c.Transcription.PrimaryEngine = yamlConfig.Transcription.PrimaryEngine
	}
	if yamlConfig.Transcription.FallbackEngine != "" {
		c.Transcription.FallbackEngine = yamlConfig.Transcription.FallbackEngine
	}
	if yamlConfig.Transcription.FallbackEnabled != nil {
		c.Transcription.FallbackEnabled = *yamlConfig.Transcription.FallbackEnabled
	}
	if yamlConfig.Transcription.EngineTimeoutSeconds > 0 {
		c.Transcription.EngineTimeoutSeconds = yamlConfig.Transcription.EngineTimeoutSeconds
	}
	if yamlConfig.Transcription.LocalConcurrency > 0 {
		c.Transcription.LocalConcurrency = yamlConfig.Transcription.LocalConcurrency
	}

	return nil
}

func (c *Config) SetTranscriptionDefaults() {
	if c.Transcription.PrimaryEngine == "" {
		c.Transcription.PrimaryEngine = "local"
	}
	if c.Transcription.FallbackEngine == "" {
		c.Transcription.FallbackEngine = "openai"
	}
	if c.Transcription.EngineTimeoutSeconds <= 0 {
		c.Transcription.EngineTimeoutSeconds = 120
	}
	if c.Transcription.LocalConcurrency <= 0 {
		c.Transcription.LocalConcurrency = 2
	}
}

func (c *Config) validate() error {
	valid := map[string]bool{"local": true, "openai": true}
	if !valid[c.Transcription.PrimaryEngine] {
		return fmt.Errorf("unknown primary engine %q", c.Transcription.PrimaryEngine)
	}
	if c.Transcription.FallbackEngine != "" && !valid[c.Transcription.FallbackEngine] {
		return fmt.Errorf("unknown fallback engine %q", c.Transcription.FallbackEngine)
	}
	return nil
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
