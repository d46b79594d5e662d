package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by Load.
const (
	EnvConfigFile     = "BOOKSHELF_CONFIG"
	EnvHTTPAddr       = "BOOKSHELF_ADDR"
	EnvHealthAddr     = "BOOKSHELF_HEALTH_ADDR"
	EnvDatabaseDSN    = "DATABASE_DSN"
	EnvSessionSecret  = "SESSION_SECRET"
	EnvSessionTTL     = "SESSION_TTL"
	EnvSecureCookies  = "BOOKSHELF_SECURE_COOKIES"
	EnvRequestTimeout = "BOOKSHELF_REQUEST_TIMEOUT"
)

// Duration decodes either a Go duration string ("90s") or integer nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*d = Duration(time.Duration(x))
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// jsonConfig is the on-disk shape. Pointer fields distinguish "absent" from zero.
type jsonConfig struct {
	HTTPAddr       *string   `json:"http_addr"`
	HealthAddr     *string   `json:"health_addr"`
	DatabaseDSN    *string   `json:"database_dsn"`
	SessionSecret  *string   `json:"session_secret"`
	SessionTTL     *Duration `json:"session_ttl"`
	RequestTimeout *Duration `json:"request_timeout"`
	ProbeInterval  *Duration `json:"probe_interval"`
	SecureCookies  *bool     `json:"secure_cookies"`
	Dev            *bool     `json:"dev"`
}

// configPath finds -c/-config in args, falling back to BOOKSHELF_CONFIG.
func configPath(args []string, getenv func(string) string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || (name != "c" && name != "config") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return getenv(EnvConfigFile)
}

func parseJSON(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(raw, &jc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, jc.HTTPAddr)
	setString(&cfg.HealthAddr, jc.HealthAddr)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.SessionSecret, jc.SessionSecret)
	setDuration(&cfg.SessionTTL, jc.SessionTTL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.ProbeInterval, jc.ProbeInterval)
	if jc.SecureCookies != nil {
		cfg.SecureCookies = *jc.SecureCookies
	}
	if jc.Dev != nil {
		cfg.Dev = *jc.Dev
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}

func parseEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvHTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
	if v := getenv(EnvHealthAddr); v != "" {
		cfg.HealthAddr = v
	}
	if v := getenv(EnvDatabaseDSN); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := getenv(EnvSessionSecret); v != "" {
		cfg.SessionSecret = v
	}
	if v := getenv(EnvSessionTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSessionTTL, err)
		}
		cfg.SessionTTL = d
	}
	if v := getenv(EnvRequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if v := getenv(EnvSecureCookies); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSecureCookies, err)
		}
		cfg.SecureCookies = b
	}
	return nil
}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("bookshelf", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var ignored string
	fs.StringVar(&ignored, "c", "", "path to JSON config file")
	fs.StringVar(&ignored, "config", "", "path to JSON config file")

	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address, empty disables it")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "PostgreSQL DSN, empty uses the in-memory store")
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "HS256 session signing secret")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "session lifetime")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "per-request timeout, 0 disables it")
	fs.DurationVar(&cfg.ProbeInterval, "probe-interval", cfg.ProbeInterval, "store health probe interval")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", cfg.SecureCookies, "mark cookies Secure (HTTPS deployments)")
	fs.BoolVar(&cfg.Dev, "dev", cfg.Dev, "development logging")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}
