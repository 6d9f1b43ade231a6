package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Fallback  FallbackConfig  `yaml:"fallback" mapstructure:"fallback"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings. Low non-zero temperature and
// a bounded MaxTokens bias batch analysis toward repeatable output.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// PipelineConfig configures batch analysis behavior.
type PipelineConfig struct {
	// BatchSize is the maximum number of records per analysis batch.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`

	// MaxConcurrentBatches > 1 analyzes batches in parallel. Aggregation
	// order stays deterministic regardless: results join by batch index.
	MaxConcurrentBatches int `yaml:"max_concurrent_batches" mapstructure:"max_concurrent_batches"`

	// RateLimitPerSec throttles external model calls. 0 disables throttling.
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`

	// RetryAttempts is the total attempt count for one model call.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts"`

	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit so later batches skip straight to the heuristic analyzer.
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`

	// DisableLLM forces the heuristic analyzer for every batch.
	DisableLLM bool `yaml:"disable_llm" mapstructure:"disable_llm"`
}

// FallbackConfig tunes the heuristic analyzer's fixed sentiment split.
// The split is a documented approximation, not measured sentiment.
type FallbackConfig struct {
	PositiveRatio float64 `yaml:"positive_ratio" mapstructure:"positive_ratio"`
	NegativeRatio float64 `yaml:"negative_ratio" mapstructure:"negative_ratio"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMMSINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	// Registering the key with an empty default lets AutomaticEnv feed it
	// through Unmarshal even without a config file entry.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1500)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("pipeline.batch_size", 10)
	v.SetDefault("pipeline.max_concurrent_batches", 1)
	v.SetDefault("pipeline.rate_limit_per_sec", 2.0)
	v.SetDefault("pipeline.retry_attempts", 3)
	v.SetDefault("pipeline.breaker_threshold", 4)
	v.SetDefault("pipeline.disable_llm", false)
	v.SetDefault("fallback.positive_ratio", 0.4)
	v.SetDefault("fallback.negative_ratio", 0.1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
