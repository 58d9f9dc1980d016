// Package config loads the histostore command line configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/histostore/codec"
	"github.com/hupe1980/histostore/container"
)

// Sentinel validation errors.
var (
	ErrInvalidBackend     = errors.New("invalid store backend")
	ErrMissingBucket      = errors.New("store bucket is required for remote backends")
	ErrInvalidConcurrency = errors.New("aggregate concurrency must be positive")
	ErrInvalidIOLimit     = errors.New("aggregate io limit must not be negative")
	ErrInvalidCompression = errors.New("invalid compression")
	ErrInvalidCodec       = errors.New("invalid codec")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
)

// Store backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// Default configuration values.
const (
	DefaultConcurrency = 4
	DefaultCompression = "none"
	DefaultCodec       = "go-json"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultBackend     = BackendLocal
	DefaultRoot        = "."

	envPrefix  = "HISTOSTORE"
	configName = "histostore"
)

// Config holds all configuration for the histostore CLI.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects where shards are read from and written to.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	// Root is the directory of the local backend.
	Root     string `mapstructure:"root"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`

	// Static credentials for the minio backend. The s3 backend uses the
	// default AWS credential chain.
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// AggregateConfig holds aggregation defaults.
type AggregateConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Compression string `mapstructure:"compression"`
	Codec       string `mapstructure:"codec"`
	// IOLimitBytes caps blob store reads in bytes per second. 0 is unlimited.
	IOLimitBytes int `mapstructure:"io_limit_bytes"`
}

// Load reads configuration from configPath, or from histostore.yaml in the
// working directory, ./config or $HOME/.histostore when configPath is empty.
// A missing default file is not an error. HISTOSTORE_* environment
// variables override file values, e.g. HISTOSTORE_STORE_BUCKET.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.histostore")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("store.backend", DefaultBackend)
	v.SetDefault("store.root", DefaultRoot)
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.prefix", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
	v.SetDefault("store.use_ssl", true)

	v.SetDefault("aggregate.concurrency", DefaultConcurrency)
	v.SetDefault("aggregate.compression", DefaultCompression)
	v.SetDefault("aggregate.codec", DefaultCodec)
	v.SetDefault("aggregate.io_limit_bytes", 0)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendLocal:
	case BackendS3, BackendMinio:
		if c.Store.Bucket == "" {
			return fmt.Errorf("%w: %s", ErrMissingBucket, c.Store.Backend)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Store.Backend)
	}

	if c.Aggregate.Concurrency <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.Aggregate.Concurrency)
	}
	if c.Aggregate.IOLimitBytes < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIOLimit, c.Aggregate.IOLimitBytes)
	}
	if _, err := c.CompressionType(); err != nil {
		return err
	}
	if _, err := c.CodecImpl(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	return nil
}

// CompressionType parses Aggregate.Compression.
func (c *Config) CompressionType() (container.Compression, error) {
	t, err := container.ParseCompression(c.Aggregate.Compression)
	if err != nil {
		return t, fmt.Errorf("%w: %w", ErrInvalidCompression, err)
	}
	return t, nil
}

// CodecImpl resolves Aggregate.Codec.
func (c *Config) CodecImpl() (codec.Codec, error) {
	impl, ok := codec.ByName(c.Aggregate.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCodec, c.Aggregate.Codec)
	}
	return impl, nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	return level, nil
}
