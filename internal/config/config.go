// Package config loads runtime configuration from flags, an optional YAML file,
// KESEF_* environment variables and a .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. KESEF_STORAGE_DRIVER.
const EnvPrefix = "KESEF"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Report   ReportConfig   `mapstructure:"report"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SecureCookie   bool     `mapstructure:"secure_cookie"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	LoginWindow time.Duration `mapstructure:"login_window"`
	MaxFails    int           `mapstructure:"max_fails"`
	BlockFor    time.Duration `mapstructure:"block_for"`
}

type ScraperConfig struct {
	Command      string        `mapstructure:"command"`
	Args         []string      `mapstructure:"args"`
	Timeout      time.Duration `mapstructure:"timeout"`
	LookbackDays int           `mapstructure:"lookback_days"`
}

type ReportConfig struct {
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
}

type TelegramConfig struct {
	APIURL string `mapstructure:"api_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.secure_cookie", false)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "data/finance.db")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.login_window", 15*time.Minute)
	v.SetDefault("auth.max_fails", 5)
	v.SetDefault("auth.block_for", 15*time.Minute)

	v.SetDefault("scraper.command", "node")
	v.SetDefault("scraper.args", []string{"scraper/run.js"})
	v.SetDefault("scraper.timeout", 2*time.Minute)
	v.SetDefault("scraper.lookback_days", 60)

	v.SetDefault("report.cron", "0 7 * * *")
	v.SetDefault("report.timezone", "Asia/Jerusalem")

	v.SetDefault("telegram.api_url", "https://api.telegram.org")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)
}

// Load reads configuration into v and decodes it. cfgFile may be empty.
// A missing .env file is not an error.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("kesef")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("config: auth.session_ttl must be positive")
	}
	if c.Auth.MaxFails <= 0 {
		return errors.New("config: auth.max_fails must be positive")
	}
	if c.Scraper.Command == "" {
		return errors.New("config: scraper.command is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location loads the report timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: report.timezone: %w", err)
	}
	return loc, nil
}
