package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Log      LogConfig
	Stock    StockConfig
}

type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Timezone string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
	MaxRetries      int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// StockConfig holds the values used when a purchase creates a stock entry implicitly.
type StockConfig struct {
	DefaultLocation string
	DefaultMinimum  int
	DefaultMaximum  int
}

// Load reads configuration. Priority (highest first):
// 1. POS_ environment variables (POS_DATABASE_URL, POS_APP_PORT, ...), .env included
// 2. config.toml in the working directory
// 3. built-in defaults
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			Timezone: v.GetString("app.timezone"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			TxTimeout:       v.GetDuration("database.tx_timeout"),
			MaxRetries:      v.GetInt("database.max_retries"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Stock: StockConfig{
			DefaultLocation: v.GetString("stock.default_location"),
			DefaultMinimum:  v.GetInt("stock.default_minimum"),
			DefaultMaximum:  v.GetInt("stock.default_maximum"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "inventory-pos")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "inventory_pos")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.tx_timeout", 5*time.Second)
	v.SetDefault("database.max_retries", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("stock.default_location", "GENERAL")
	v.SetDefault("stock.default_minimum", 5)
	v.SetDefault("stock.default_maximum", 100)
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q is not a valid location: %w", c.App.Timezone, err)
	}
	if c.Database.TxTimeout <= 0 {
		return fmt.Errorf("database.tx_timeout must be positive, got %s", c.Database.TxTimeout)
	}
	if c.Database.MaxRetries < 1 {
		return fmt.Errorf("database.max_retries must be at least 1, got %d", c.Database.MaxRetries)
	}
	if c.Stock.DefaultLocation == "" {
		return fmt.Errorf("stock.default_location must not be empty")
	}
	if c.Stock.DefaultMinimum < 0 || c.Stock.DefaultMaximum < c.Stock.DefaultMinimum {
		return fmt.Errorf("stock.default_minimum (%d) and stock.default_maximum (%d) are inconsistent",
			c.Stock.DefaultMinimum, c.Stock.DefaultMaximum)
	}
	return nil
}

// Location returns the timezone that defines the calendar day for cash sessions.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN returns database.url when set, otherwise a URL built from the individual fields.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
