package config

import (
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress      string
	APIBaseURL      string
	UIOrigin        string
	SessionDriver   string
	SessionDBURI    string
	SessionSecret   string
	StatusCatalog   string
	DisplayTimezone string
	HTTPTimeout     time.Duration
	RefreshInterval time.Duration
	CacheMaxAge     time.Duration
	LogLevel        string
	LogFormat       string
}

func New() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env not loaded, using process environment", "error", err)
	}
	return Parse(flag.CommandLine, os.Args[1:])
}

// Parse registers the flags on fs, parses args and applies environment
// overrides. Environment variables win over flags.
func Parse(fs *flag.FlagSet, args []string) *Config {
	cfg := &Config{}

	fs.StringVar(&cfg.RunAddress, "a", "localhost:8090", "local dashboard address and port")
	fs.StringVar(&cfg.APIBaseURL, "b", "http://localhost:3000/api/v1", "order backend REST base URL")
	fs.StringVar(&cfg.UIOrigin, "ui-origin", "http://localhost:5173", "browser origins allowed to call the dashboard API, comma separated")
	fs.StringVar(&cfg.SessionDriver, "driver", "sqlite", "session store driver (sqlite|pgx)")
	fs.StringVar(&cfg.SessionDBURI, "d", "orderdesk.db", "session store URI")
	fs.StringVar(&cfg.SessionSecret, "s", "orderdesk-local-secret", "secret sealing the stored token")
	fs.StringVar(&cfg.StatusCatalog, "catalog", "", "status catalog YAML file (embedded when empty)")
	fs.StringVar(&cfg.DisplayTimezone, "tz", "Asia/Karachi", "timezone for displayed timestamps")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", 15*time.Second, "backend request timeout")
	fs.DurationVar(&cfg.RefreshInterval, "refresh", 10*time.Second, "stale query refresh interval")
	fs.DurationVar(&cfg.CacheMaxAge, "max-age", time.Minute, "age after which cached reads are refetched (0 disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.LogFormat, "log-format", "text", "log format (text|json)")
	_ = fs.Parse(args)

	cfg.RunAddress = getEnv("RUN_ADDRESS", cfg.RunAddress)
	cfg.APIBaseURL = getEnv("API_BASE_URL", cfg.APIBaseURL)
	cfg.UIOrigin = getEnv("UI_ORIGIN", cfg.UIOrigin)
	cfg.SessionDriver = getEnv("SESSION_DB_DRIVER", cfg.SessionDriver)
	cfg.SessionDBURI = getEnv("SESSION_DB_URI", cfg.SessionDBURI)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.StatusCatalog = getEnv("STATUS_CATALOG", cfg.StatusCatalog)
	cfg.DisplayTimezone = getEnv("DISPLAY_TIMEZONE", cfg.DisplayTimezone)
	cfg.HTTPTimeout = getDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.RefreshInterval = getDuration("REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.CacheMaxAge = getDuration("CACHE_MAX_AGE", cfg.CacheMaxAge)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	return cfg
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Origins splits UIOrigin into its trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.UIOrigin, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Location resolves DisplayTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		slog.Warn("unknown display timezone, using UTC", "tz", c.DisplayTimezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment", "key", key, "value", value)
		return fallback
	}
	return d
}
