// Package config provides configuration loading and validation for the mds
// command line tool.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/lukasn42/move-datastructure/pkg/balance"
	"github.com/lukasn42/move-datastructure/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidThreads     = errors.New("build threads must be positive")
	ErrInvalidWidth       = errors.New("integer width must be 4 or 8 bytes")
	ErrInvalidFormat      = errors.New("unknown structure format")
	ErrInvalidMetadata    = errors.New("unknown metadata format")
	ErrInvalidLogFormat   = errors.New("unknown log format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

// Config holds all configuration for the mds tool.
type Config struct {
	Build         BuildConfig         `mapstructure:"build"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BuildConfig holds the construction parameters.
type BuildConfig struct {
	Format   string `mapstructure:"format"`
	Metadata string `mapstructure:"metadata"`
	A        int    `mapstructure:"a"`
	B        int    `mapstructure:"b"`
	Threads  int    `mapstructure:"threads"`
	Width    int    `mapstructure:"width"`
}

// Params returns the balancing parameters.
func (b BuildConfig) Params() balance.Params {
	return balance.Params{A: b.A, B: b.B}
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds tracing and metrics export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Environment  string  `mapstructure:"environment"`
	MetricsFile  string  `mapstructure:"metrics_file"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	// Set defaults.
	setDefaults(viperCfg)

	// Read config file.
	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("mds")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/mds")
	}

	// Read environment variables.
	viperCfg.SetEnvPrefix("MDS")
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

	validateErr := Validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Build defaults.
	viperCfg.SetDefault("build.a", DefaultA)
	viperCfg.SetDefault("build.b", DefaultB)
	viperCfg.SetDefault("build.threads", runtime.GOMAXPROCS(0))
	viperCfg.SetDefault("build.width", DefaultWidth)
	viperCfg.SetDefault("build.format", DefaultFormat)
	viperCfg.SetDefault("build.metadata", DefaultMetadata)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	// Observability defaults.
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("observability.environment", DefaultEnvironment)
	viperCfg.SetDefault("observability.metrics_file", "")
}

// Validate checks the configuration, including values overridden by flags
// after loading.
func Validate(config *Config) error {
	err := config.Build.Params().Validate()
	if err != nil {
		return err
	}

	if config.Build.Threads <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreads, config.Build.Threads)
	}

	if !slices.Contains(widths, config.Build.Width) {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, config.Build.Width)
	}

	if !slices.Contains(formats, config.Build.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Build.Format)
	}

	if !slices.Contains(metadataFormats, config.Build.Metadata) {
		return fmt.Errorf("%w: %q", ErrInvalidMetadata, config.Build.Metadata)
	}

	_, err = observability.ParseLogLevel(config.Logging.Level)
	if err != nil {
		return err
	}

	if !slices.Contains(logFormats, config.Logging.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	ratio := config.Observability.SampleRatio
	if ratio < 0 || ratio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, ratio)
	}

	return nil
}
