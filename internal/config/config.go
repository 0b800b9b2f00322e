package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Download DownloadConfig `mapstructure:"download"`
	Playback PlaybackConfig `mapstructure:"playback"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// UpstreamConfig holds configuration for the remote movie/series API.
type UpstreamConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the per-request timeout in seconds.
	Timeout int `mapstructure:"timeout"`
	// SeriesSentinel is the numeric subjectType value the upstream uses for
	// series. Observed live values have flipped between 1 and 2, so it must
	// stay configurable and be validated against a live sample.
	SeriesSentinel int `mapstructure:"series_sentinel"`
	// PlaceholderPoster is served when an item has no usable poster.
	PlaceholderPoster string `mapstructure:"placeholder_poster"`
	// RateLimit is the maximum live requests per second (burst 2x).
	RateLimit float64 `mapstructure:"rate_limit"`
}

// DownloadConfig holds download pipeline configuration.
type DownloadConfig struct {
	// ChunkSize is the read buffer size in bytes for streaming downloads.
	ChunkSize int `mapstructure:"chunk_size"`
	// Timeout is the whole-download timeout in seconds. Zero disables it.
	Timeout int `mapstructure:"timeout"`
}

// PlaybackConfig holds playback session configuration.
type PlaybackConfig struct {
	// ResumeSaveInterval is how often the playing position is persisted
	// for resume, e.g. "5s".
	ResumeSaveInterval time.Duration `mapstructure:"resume_save_interval"`
	// ResumeMaxAgeDays controls when stale resume positions are purged.
	ResumeMaxAgeDays int `mapstructure:"resume_max_age_days"`
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.maxmovies")
	}

	v.SetEnvPrefix("MAXMOVIES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8585)

	v.SetDefault("database.path", "./data/maxmovies.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("upstream.base_url", "https://movieapi.giftedtech.co.ke/api")
	v.SetDefault("upstream.timeout", 15)
	v.SetDefault("upstream.series_sentinel", 2)
	v.SetDefault("upstream.placeholder_poster", "/assets/poster-placeholder.svg")
	v.SetDefault("upstream.rate_limit", 5.0)

	v.SetDefault("download.chunk_size", 64*1024)
	v.SetDefault("download.timeout", 0)

	v.SetDefault("playback.resume_save_interval", 5*time.Second)
	v.SetDefault("playback.resume_max_age_days", 90)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
