package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/pdfgarden/pdfgarden/internal/crypto/types"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Limits   LimitsConfig   `mapstructure:"limits"`
}

type ServerConfig struct {
	Listen        string        `mapstructure:"listen" envconfig:"SERVER_LISTEN" default:":8080"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"60s"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	MaxUploadSize int64         `mapstructure:"max_upload_size" envconfig:"SERVER_MAX_UPLOAD_SIZE" default:"268435456"` // 256MB
}

type CryptoConfig struct {
	// Algorithm is AES-256-GCM (default) or ChaCha20-Poly1305.
	Algorithm string `mapstructure:"algorithm" envconfig:"CRYPTO_ALGORITHM" default:"AES-256-GCM"`
}

type PipelineConfig struct {
	PreviewThrottle  time.Duration `mapstructure:"preview_throttle" envconfig:"PIPELINE_PREVIEW_THROTTLE" default:"300ms"`
	PreviewCacheSize int           `mapstructure:"preview_cache_size" envconfig:"PIPELINE_PREVIEW_CACHE_SIZE" default:"64"`
}

type LimitsConfig struct {
	Enabled   bool    `mapstructure:"enabled" envconfig:"LIMITS_ENABLED" default:"false"`
	GlobalRPS float64 `mapstructure:"global_rps" envconfig:"LIMITS_GLOBAL_RPS" default:"100"`
	PerIPRPS  float64 `mapstructure:"per_ip_rps" envconfig:"LIMITS_PER_IP_RPS" default:"20"`
	Burst     int     `mapstructure:"burst" envconfig:"LIMITS_BURST" default:"40"`
	// MaxConcurrent caps in-flight requests; 0 disables the cap.
	MaxConcurrent int `mapstructure:"max_concurrent" envconfig:"LIMITS_MAX_CONCURRENT" default:"0"`
}

func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := viper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env vars: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch types.Algorithm(cfg.Crypto.Algorithm) {
	case types.AlgorithmAES256GCM, types.AlgorithmChaCha20Poly1305, "":
	default:
		return fmt.Errorf("unsupported crypto algorithm: %s", cfg.Crypto.Algorithm)
	}

	if cfg.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if cfg.Pipeline.PreviewThrottle < 0 {
		return fmt.Errorf("preview throttle must not be negative")
	}
	if cfg.Pipeline.PreviewCacheSize <= 0 {
		return fmt.Errorf("preview cache size must be positive")
	}

	if cfg.Limits.Enabled {
		if cfg.Limits.GlobalRPS <= 0 || cfg.Limits.PerIPRPS <= 0 {
			return fmt.Errorf("rate limits must be positive when enabled")
		}
		if cfg.Limits.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}
	if cfg.Limits.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent must not be negative")
	}

	return nil
}
