// Package config provides Viper-based configuration loading for the skirmish
// relay and offline tools.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server modes.
const (
	// ModeStandalone keeps relay games in memory only.
	ModeStandalone = "standalone"
	// ModePersistent also records relay games and their commands in PostgreSQL.
	ModePersistent = "persistent"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode is "standalone" or "persistent".
	Mode string `mapstructure:"mode"`
}

// Persistent reports whether the relay records games in the database.
func (s ServerConfig) Persistent() bool { return s.Mode == ModePersistent }

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RelayConfig holds the command relay's HTTP and websocket settings.
type RelayConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// ReadTimeout bounds reading an HTTP request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is how long a game may go without a submission before it is closed.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// MaxMessageBytes caps a single inbound websocket message.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes"`
	// OutboxSize is the number of envelopes buffered per connection.
	OutboxSize int `mapstructure:"outbox_size"`
	// TokenCost is the bcrypt cost used to hash slot tokens.
	TokenCost int `mapstructure:"token_cost"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (r RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameConfig holds rules and content settings shared by every game.
type GameConfig struct {
	// TurningPoints is the number of turning points before the game ends.
	TurningPoints int `mapstructure:"turning_points"`
	// ContentDir is the directory of team YAML files.
	ContentDir string `mapstructure:"content_dir"`
	// Seed makes dice deterministic when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// Validate checks all configuration invariants. The database section is only
// checked in persistent mode.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Server.Persistent() {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateRelay(c.Relay); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Mode != ModeStandalone && s.Mode != ModePersistent {
		return fmt.Errorf("server.mode must be one of [standalone, persistent], got %q", s.Mode)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRelay(r RelayConfig) error {
	var errs []string
	if r.Port < 1 || r.Port > 65535 {
		errs = append(errs, fmt.Sprintf("relay.port must be 1-65535, got %d", r.Port))
	}
	if r.ReadTimeout < 0 {
		errs = append(errs, "relay.read_timeout must not be negative")
	}
	if r.WriteTimeout < 0 {
		errs = append(errs, "relay.write_timeout must not be negative")
	}
	if r.IdleTimeout <= 0 {
		errs = append(errs, "relay.idle_timeout must be positive")
	}
	if r.MaxMessageBytes < 1 {
		errs = append(errs, fmt.Sprintf("relay.max_message_bytes must be >= 1, got %d", r.MaxMessageBytes))
	}
	if r.OutboxSize < 1 {
		errs = append(errs, fmt.Sprintf("relay.outbox_size must be >= 1, got %d", r.OutboxSize))
	}
	// bcrypt.MinCost and bcrypt.MaxCost
	if r.TokenCost < 4 || r.TokenCost > 31 {
		errs = append(errs, fmt.Sprintf("relay.token_cost must be 4-31, got %d", r.TokenCost))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.TurningPoints < 1 {
		errs = append(errs, fmt.Sprintf("game.turning_points must be >= 1, got %d", g.TurningPoints))
	}
	if g.ContentDir == "" {
		errs = append(errs, "game.content_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v, err := read(path)
	if err != nil {
		return Config{}, err
	}
	return LoadFromViper(v)
}

// LoadDatabase reads only the database section, validating it regardless of
// server mode. Tools that touch the schema directly use it.
//
// Postcondition: Returns a valid DatabaseConfig or a non-nil error.
func LoadDatabase(path string) (DatabaseConfig, error) {
	v, err := read(path)
	if err != nil {
		return DatabaseConfig{}, err
	}
	// The whole tree, so section defaults and env overrides are merged.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := validateDatabase(cfg.Database); err != nil {
		return DatabaseConfig{}, err
	}
	return cfg.Database, nil
}

// read loads path over the defaults with SKIRMISH_ environment overrides.
func read(path string) (*viper.Viper, error) {
	v := Defaults()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return v, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default settings.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", ModeStandalone)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("relay.host", "0.0.0.0")
	v.SetDefault("relay.port", 8080)
	v.SetDefault("relay.read_timeout", "10s")
	v.SetDefault("relay.write_timeout", "10s")
	v.SetDefault("relay.idle_timeout", "30m")
	v.SetDefault("relay.max_message_bytes", 16384)
	v.SetDefault("relay.outbox_size", 64)
	v.SetDefault("relay.token_cost", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.turning_points", 4)
	v.SetDefault("game.content_dir", "content/teams")
	v.SetDefault("game.seed", 0)
}
