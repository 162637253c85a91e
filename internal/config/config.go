package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	DefaultHTTPAddr  = "0.0.0.0:8080"
	DefaultCountry   = "US"
	DefaultContinent = "NA"

	EnvEmail     = "ECOVACS_EMAIL"
	EnvPassword  = "ECOVACS_PASSWORD"
	EnvCountry   = "ECOVACS_COUNTRY"
	EnvContinent = "ECOVACS_CONTINENT"
	EnvHTTPAddr  = "DEEBOT_BRIDGE_HTTP_ADDR"
)

// Config holds runtime configuration for the bridge.
type Config struct {
	Email     string
	Password  string
	Country   string
	Continent string
	HTTPAddr  string
}

// Load reads configuration from the environment, applies defaults, and validates.
func Load() (Config, error) {
	cfg := Config{
		Email:     os.Getenv(EnvEmail),
		Password:  os.Getenv(EnvPassword),
		Country:   os.Getenv(EnvCountry),
		Continent: os.Getenv(EnvContinent),
		HTTPAddr:  os.Getenv(EnvHTTPAddr),
	}

	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.Continent == "" {
		cfg.Continent = DefaultContinent
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	cfg.Country = strings.ToUpper(cfg.Country)
	cfg.Continent = strings.ToUpper(cfg.Continent)
}

// Validate enforces required invariants beyond env typing.
func Validate(cfg Config) error {
	if cfg.Email == "" {
		return fmt.Errorf("%s is required", EnvEmail)
	}
	if !strings.Contains(cfg.Email, "@") {
		return fmt.Errorf("%s must be an email address", EnvEmail)
	}
	if cfg.Password == "" {
		return fmt.Errorf("%s is required", EnvPassword)
	}
	if len(cfg.Country) != 2 {
		return fmt.Errorf("%s must be a two-letter country code", EnvCountry)
	}
	if len(cfg.Continent) != 2 {
		return fmt.Errorf("%s must be a two-letter continent code", EnvContinent)
	}
	return nil
}
