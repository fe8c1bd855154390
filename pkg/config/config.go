// Package config provides configuration loading and validation for symtree.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidCharUnit  = errors.New("invalid char unit")
	ErrInvalidShards    = errors.New("shard count must be positive")
	ErrInvalidThreshold = errors.New("hibernation threshold must not be negative")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidBench     = errors.New("bench nodes and accesses must be positive")
)

// Config holds all configuration for the symtree tools.
type Config struct {
	Index   IndexConfig   `mapstructure:"index"`
	Logging LoggingConfig `mapstructure:"logging"`
	Bench   BenchConfig   `mapstructure:"bench"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// IndexConfig configures documents and their arenas.
type IndexConfig struct {
	CharUnit             string `mapstructure:"char_unit"`
	HibernationThreshold int    `mapstructure:"hibernation_threshold"`
	Shards               int    `mapstructure:"shards"`
	ValidateOnCommit     bool   `mapstructure:"validate_on_commit"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BenchConfig sizes the randomized access benchmark.
type BenchConfig struct {
	Nodes    int   `mapstructure:"nodes"`
	Accesses int   `mapstructure:"accesses"`
	Seed     int64 `mapstructure:"seed"`
}

// MetricsConfig holds the metrics endpoint and the OTLP exporter target.
type MetricsConfig struct {
	Addr         string `mapstructure:"addr"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("symtree")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/symtree")
	}

	viperCfg.SetEnvPrefix("SYMTREE")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			CharUnit:             DefaultCharUnit,
			HibernationThreshold: DefaultHibernationThreshold,
			Shards:               DefaultShards,
			ValidateOnCommit:     DefaultValidateOnCommit,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Bench:   BenchConfig{Nodes: DefaultBenchNodes, Accesses: DefaultBenchAccesses, Seed: DefaultBenchSeed},
		Metrics: MetricsConfig{
			Addr:         DefaultMetricsAddr,
			OTLPEndpoint: DefaultOTLPEndpoint,
			ServiceName:  DefaultServiceName,
		},
	}
}

func setDefaults(viperCfg *viper.Viper) {
	defaults := Default()

	viperCfg.SetDefault("index.char_unit", defaults.Index.CharUnit)
	viperCfg.SetDefault("index.hibernation_threshold", defaults.Index.HibernationThreshold)
	viperCfg.SetDefault("index.shards", defaults.Index.Shards)
	viperCfg.SetDefault("index.validate_on_commit", defaults.Index.ValidateOnCommit)

	viperCfg.SetDefault("logging.level", defaults.Logging.Level)
	viperCfg.SetDefault("logging.format", defaults.Logging.Format)

	viperCfg.SetDefault("bench.nodes", defaults.Bench.Nodes)
	viperCfg.SetDefault("bench.accesses", defaults.Bench.Accesses)
	viperCfg.SetDefault("bench.seed", defaults.Bench.Seed)

	viperCfg.SetDefault("metrics.addr", defaults.Metrics.Addr)
	viperCfg.SetDefault("metrics.otlp_endpoint", defaults.Metrics.OTLPEndpoint)
	viperCfg.SetDefault("metrics.service_name", defaults.Metrics.ServiceName)
}

func validateConfig(config *Config) error {
	switch config.Index.CharUnit {
	case "rune", "utf16", "grapheme":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCharUnit, config.Index.CharUnit)
	}

	if config.Index.Shards <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidShards, config.Index.Shards)
	}

	if config.Index.HibernationThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, config.Index.HibernationThreshold)
	}

	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Bench.Nodes <= 0 || config.Bench.Accesses <= 0 {
		return fmt.Errorf("%w: %d nodes, %d accesses", ErrInvalidBench, config.Bench.Nodes, config.Bench.Accesses)
	}

	return nil
}
