// Package config assembles server settings from defaults, an optional JSON
// file, environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// MinSecretLen is the shortest accepted session signing secret.
const MinSecretLen = 16

// Config holds runtime settings for the catalog server.
//
// An empty DatabaseDSN selects the in-memory store.
type Config struct {
	HTTPAddr       string
	HealthAddr     string
	DatabaseDSN    string
	SessionSecret  string
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	ProbeInterval  time.Duration
	SecureCookies  bool
	Dev            bool
}

// LoadDefaults populates c with development defaults. The session secret has
// no default and must be supplied.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":3000"
	c.HealthAddr = ":50051"
	c.DatabaseDSN = ""
	c.SessionSecret = ""
	c.SessionTTL = 24 * time.Hour
	c.RequestTimeout = 30 * time.Second
	c.ProbeInterval = 10 * time.Second
	c.SecureCookies = false
	c.Dev = false
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errList []error
	if c.HTTPAddr == "" {
		errList = append(errList, errors.New("http address is empty"))
	}
	if len(c.SessionSecret) < MinSecretLen {
		errList = append(errList, fmt.Errorf("session secret must be at least %d bytes", MinSecretLen))
	}
	if c.SessionTTL <= 0 {
		errList = append(errList, errors.New("session ttl must be positive"))
	}
	if c.RequestTimeout < 0 {
		errList = append(errList, errors.New("request timeout must not be negative"))
	}
	return errors.Join(errList...)
}

// Load builds a Config from args (without the program name) and the
// environment lookup getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path := configPath(args, getenv)
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
