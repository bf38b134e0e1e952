// Package config loads the settings shared by the client, the frontends and the API server.
//
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. YAML file if CONTACTS_CONFIG is set
//  3. env vars with prefix CONTACTS_
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultBaseURL is the endpoint of the contacts API.
const DefaultBaseURL = "http://localhost:8000/api/contacts/"

const envPrefix = "CONTACTS_"

// Config contains process configuration.
type Config struct {
	// BaseURL is the contacts API endpoint used by the client. It must end with '/'.
	BaseURL string `koanf:"base_url"`

	// Addr is the listen address of the API server.
	Addr string `koanf:"addr"`

	// WebAddr is the listen address of the web frontend.
	WebAddr string `koanf:"web_addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// GinLogging turns the per-request log lines of both HTTP servers on or off.
	GinLogging bool `koanf:"gin_logging"`

	DBHost     string `koanf:"db_host"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		Addr:       ":8000",
		WebAddr:    ":8080",
		LogLevel:   "info",
		GinLogging: true,
		DBHost:     "localhost:3306",
		DBName:     "contacts",
	}
}

// Load builds a Config by layering defaults, the optional file and env vars.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}

	// CONTACTS_DB_HOST -> db_host
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that every command depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		return fmt.Errorf("base_url %q must end with '/'", c.BaseURL)
	}
	if c.Addr == "" || c.WebAddr == "" {
		return errors.New("addr and web_addr must not be empty")
	}
	return nil
}

// DSN returns the MySQL data source name for the configured database.
func (c *Config) DSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.DBUser
	dsn.Passwd = c.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = c.DBHost
	dsn.DBName = c.DBName
	dsn.ParseTime = true
	// UPDATE reports matched instead of changed rows, so an unchanged contact is not "not found".
	dsn.ClientFoundRows = true
	return dsn.FormatDSN()
}
