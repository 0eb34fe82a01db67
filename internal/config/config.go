package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Album creation policies.
const (
	AlbumPolicyRestrictive = "restrictive"
	AlbumPolicyPermissive  = "permissive"
)

// EnvPrefix is prepended to every environment override, e.g. MAYDAY_LIBRARY_MUSIC_DIRECTORY.
const EnvPrefix = "MAYDAY"

// AppConfig represents the main application configuration
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Library  LibraryConfig  `mapstructure:"library"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Lyrics   LyricsConfig   `mapstructure:"lyrics"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig is the worker's health and metrics endpoint
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LibraryConfig describes where music lives and how new albums may appear.
type LibraryConfig struct {
	MusicDirectory         string `mapstructure:"music_directory"`
	AuthoritativeDirectory string `mapstructure:"authoritative_directory"`
	AlbumPolicy            string `mapstructure:"album_policy"`
	DefaultArtist          string `mapstructure:"default_artist"`
	PlaceholderReleaseDate string `mapstructure:"placeholder_release_date"`
}

// ScannerConfig tunes the directory scanner.
type ScannerConfig struct {
	Workers      int     `mapstructure:"workers"`
	RateLimit    float64 `mapstructure:"rate_limit"` // files per second, 0 = unlimited
	CacheEnabled bool    `mapstructure:"cache_enabled"`
	Schedule     string  `mapstructure:"schedule"` // cron spec for periodic rescans, empty = off
}

// LyricsConfig configures the lyric loader.
type LyricsConfig struct {
	Directory string  `mapstructure:"directory"`
	Overwrite bool    `mapstructure:"overwrite"`
	DryRun    bool    `mapstructure:"dry_run"`
	MinScore  float64 `mapstructure:"min_score"`
}

// QueueConfig configures scan notifications.
type QueueConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`
	Topic   string `mapstructure:"topic"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Persist bool   `mapstructure:"persist"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	UseOTLP     bool   `mapstructure:"use_otlp"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// ConfigLoader reads configuration from a YAML file and the environment.
type ConfigLoader struct {
	viper *viper.Viper
}

// NewConfigLoader creates a loader with defaults registered.
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &ConfigLoader{viper: v}
}

// SetConfigFile points the loader at an explicit file.
func (l *ConfigLoader) SetConfigFile(path string) {
	l.viper.SetConfigFile(path)
}

// Viper exposes the underlying viper instance so CLI flags can be bound to it.
func (l *ConfigLoader) Viper() *viper.Viper {
	return l.viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 9090)
	v.SetDefault("server.host", "0.0.0.0")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "mayday.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mayday")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", DefaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", DefaultConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", DefaultConnMaxIdleTime)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.timeout", 2*time.Second)

	v.SetDefault("library.music_directory", "./music")
	v.SetDefault("library.authoritative_directory", "")
	v.SetDefault("library.album_policy", AlbumPolicyRestrictive)
	v.SetDefault("library.default_artist", "五月天")
	v.SetDefault("library.placeholder_release_date", "1970-01-01")

	v.SetDefault("scanner.workers", 4)
	v.SetDefault("scanner.rate_limit", 0)
	v.SetDefault("scanner.cache_enabled", true)
	v.SetDefault("scanner.schedule", "")

	v.SetDefault("lyrics.directory", "./lyrics")
	v.SetDefault("lyrics.overwrite", false)
	v.SetDefault("lyrics.dry_run", true)
	v.SetDefault("lyrics.min_score", 60)

	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.name", "default")
	v.SetDefault("queue.topic", "scan_tasks")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.persist", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.use_otlp", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "mayday")
}

// Load reads, unmarshals and validates the configuration.
func (l *ConfigLoader) Load() (*AppConfig, error) {
	if err := l.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	var config AppConfig
	if err := l.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// New albums come from the music directory unless told otherwise.
	if config.Library.AuthoritativeDirectory == "" {
		config.Library.AuthoritativeDirectory = config.Library.MusicDirectory
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the default loader
func LoadConfig() (*AppConfig, error) {
	return NewConfigLoader().Load()
}

// ReleaseDate parses the placeholder release date used for auto-created albums.
func (c LibraryConfig) ReleaseDate() (time.Time, error) {
	return time.Parse("2006-01-02", c.PlaceholderReleaseDate)
}

// validateConfig validates the configuration values
func validateConfig(config *AppConfig) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if err := validateDatabase(&config.Database); err != nil {
		return err
	}

	if strings.TrimSpace(config.Library.MusicDirectory) == "" {
		return fmt.Errorf("library.music_directory cannot be empty")
	}

	switch config.Library.AlbumPolicy {
	case AlbumPolicyRestrictive, AlbumPolicyPermissive:
	default:
		return fmt.Errorf("library.album_policy must be %q or %q, got %q",
			AlbumPolicyRestrictive, AlbumPolicyPermissive, config.Library.AlbumPolicy)
	}

	if _, err := config.Library.ReleaseDate(); err != nil {
		return fmt.Errorf("library.placeholder_release_date must be YYYY-MM-DD: %w", err)
	}

	if config.Scanner.Workers <= 0 {
		return fmt.Errorf("scanner.workers must be positive")
	}

	if config.Scanner.RateLimit < 0 {
		return fmt.Errorf("scanner.rate_limit cannot be negative")
	}

	if config.Scanner.Schedule != "" {
		if _, err := cron.ParseStandard(config.Scanner.Schedule); err != nil {
			return fmt.Errorf("scanner.schedule is not a valid cron spec: %w", err)
		}
	}

	if config.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(config.Logging.Level); err != nil {
			return fmt.Errorf("logging.level is invalid: %w", err)
		}
	}

	if config.Queue.Enabled && config.Queue.Name == "" {
		return fmt.Errorf("queue.name cannot be empty when the queue is enabled")
	}

	return nil
}
