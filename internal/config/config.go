// Package config provides configuration management for muxarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8410
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute

	defaultCatalogTimeout  = 30 * time.Second
	defaultXMLTVTimeout    = 120 * time.Second
	defaultFccTimeout      = 600 * time.Second
	defaultAccountSyncHrs  = 6
	defaultEpgSyncHrs      = 12
	defaultFccSyncHrs      = 168
	defaultStartupDelay    = 60 * time.Second
	defaultMappingBatch    = 50
	defaultTagBatchSize    = 500
	defaultStaleCutoff     = 5 * time.Minute
	defaultStreamTimeout   = 30 * time.Second
	defaultActivityBeat    = 5 * time.Second
	defaultScanInterval    = 360
	defaultAnalysisSecs    = 10
	defaultFailureThresh   = 3
	defaultMinHoursApart   = 6
	defaultReservedConns   = 1
	defaultBlackThreshold  = 0.95
	defaultMaxScanChannels = 20
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Health   HealthConfig   `mapstructure:"health"`
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BaseURL         string        `mapstructure:"base_url"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// SyncConfig holds catalog/EPG/FCC synchronization configuration.
// Interval values are defaults; the live values are persisted in
// SyncMetadata so operators can change them at runtime.
type SyncConfig struct {
	AccountIntervalHours int           `mapstructure:"account_interval_hours"`
	EpgIntervalHours     int           `mapstructure:"epg_interval_hours"`
	FccIntervalHours     int           `mapstructure:"fcc_interval_hours"`
	StartupDelay         time.Duration `mapstructure:"startup_delay"`
	CatalogTimeout       time.Duration `mapstructure:"catalog_timeout"`
	XMLTVTimeout         time.Duration `mapstructure:"xmltv_timeout"`
	FccTimeout           time.Duration `mapstructure:"fcc_timeout"`
	FccFacilityURL       string        `mapstructure:"fcc_facility_url"`
	MappingBatchSize     int           `mapstructure:"mapping_batch_size"`
	TagBatchSize         int           `mapstructure:"tag_batch_size"`
	StaleCutoff          time.Duration `mapstructure:"stale_cutoff"`
}

// StreamConfig holds downstream stream proxy configuration.
type StreamConfig struct {
	// Timeout is the inactivity window after which a session is reaped.
	Timeout time.Duration `mapstructure:"timeout"`
	// ActivityInterval is how often a proxying worker heartbeats.
	ActivityInterval time.Duration `mapstructure:"activity_interval"`
}

// HealthConfig holds channel health monitoring configuration.
type HealthConfig struct {
	ScanningEnabled         bool    `mapstructure:"scanning_enabled"`
	ReservedConnections     int     `mapstructure:"reserved_connections"`
	ScanIntervalMinutes     int     `mapstructure:"scan_interval_minutes"`
	AnalysisDurationSeconds int     `mapstructure:"analysis_duration_seconds"`
	FailureThreshold        int     `mapstructure:"failure_threshold"`
	MinHoursApart           int     `mapstructure:"min_hours_apart"`
	AutoDisableDownChannels bool    `mapstructure:"auto_disable_down_channels"`
	BlackScreenThreshold    float64 `mapstructure:"black_screen_threshold"`
	MaxChannelsPerScan      int     `mapstructure:"max_channels_per_scan"`
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect)
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with MUXARR_ and use underscores for
// nesting. Example: MUXARR_SERVER_PORT=8410.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/muxarr")
		v.AddConfigPath("$HOME/.muxarr")
	}

	v.SetEnvPrefix("MUXARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.base_url", "")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "muxarr.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Sync defaults
	v.SetDefault("sync.account_interval_hours", defaultAccountSyncHrs)
	v.SetDefault("sync.epg_interval_hours", defaultEpgSyncHrs)
	v.SetDefault("sync.fcc_interval_hours", defaultFccSyncHrs)
	v.SetDefault("sync.startup_delay", defaultStartupDelay)
	v.SetDefault("sync.catalog_timeout", defaultCatalogTimeout)
	v.SetDefault("sync.xmltv_timeout", defaultXMLTVTimeout)
	v.SetDefault("sync.fcc_timeout", defaultFccTimeout)
	v.SetDefault("sync.fcc_facility_url", "https://enterpriseefiling.fcc.gov/dataentry/api/download/dbfile/facility.zip")
	v.SetDefault("sync.mapping_batch_size", defaultMappingBatch)
	v.SetDefault("sync.tag_batch_size", defaultTagBatchSize)
	v.SetDefault("sync.stale_cutoff", defaultStaleCutoff)

	// Stream defaults
	v.SetDefault("stream.timeout", defaultStreamTimeout)
	v.SetDefault("stream.activity_interval", defaultActivityBeat)

	// Health defaults
	v.SetDefault("health.scanning_enabled", false)
	v.SetDefault("health.reserved_connections", defaultReservedConns)
	v.SetDefault("health.scan_interval_minutes", defaultScanInterval)
	v.SetDefault("health.analysis_duration_seconds", defaultAnalysisSecs)
	v.SetDefault("health.failure_threshold", defaultFailureThresh)
	v.SetDefault("health.min_hours_apart", defaultMinHoursApart)
	v.SetDefault("health.auto_disable_down_channels", true)
	v.SetDefault("health.black_screen_threshold", defaultBlackThreshold)
	v.SetDefault("health.max_channels_per_scan", defaultMaxScanChannels)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Sync.AccountIntervalHours < 1 {
		return fmt.Errorf("sync.account_interval_hours must be at least 1")
	}
	if c.Sync.MappingBatchSize < 1 {
		return fmt.Errorf("sync.mapping_batch_size must be at least 1")
	}
	if c.Health.ReservedConnections < 0 {
		return fmt.Errorf("health.reserved_connections must not be negative")
	}
	if c.Health.BlackScreenThreshold <= 0 || c.Health.BlackScreenThreshold > 1 {
		return fmt.Errorf("health.black_screen_threshold must be in (0, 1]")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
