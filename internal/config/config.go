// Package config resolves settings from defaults, an optional TOML file and
// the environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// DefaultFile is read when POKER_TRACKER_CONFIG is unset.
const DefaultFile = "poker-tracker.toml"

type Config struct {
	// HTTP server
	Host               string
	Port               string
	RateLimitPerMinute int
	StatsCacheTTL      time.Duration

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Auth
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
	// GoogleOAuthTokenFile switches the mirror to OAuth user credentials.
	GoogleOAuthTokenFile  string

	// Worker
	SyncBatchSize  int
	SyncInterval   time.Duration
	SyncMaxRetries int

	// Logging
	LogLevel  string
	LogFormat string
}

// fileConfig mirrors the TOML layout. Durations are strings like "30s".
type fileConfig struct {
	Server struct {
		Host               string `toml:"host"`
		Port               int    `toml:"port"`
		RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
		StatsCacheTTL      string `toml:"stats_cache_ttl"`
	} `toml:"server"`
	Database struct {
		Backend string `toml:"backend"`
		Path    string `toml:"path"`
	} `toml:"database"`
	Auth struct {
		JWTSecret  string `toml:"jwt_secret"`
		TokenTTL   string `toml:"token_ttl"`
		BcryptCost int    `toml:"bcrypt_cost"`
	} `toml:"auth"`
	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`
	Google struct {
		SpreadsheetID   string `toml:"spreadsheet_id"`
		SheetName       string `toml:"sheet_name"`
		CredentialsFile string `toml:"credentials_file"`
		OAuthTokenFile  string `toml:"oauth_token_file"`
	} `toml:"google"`
	Sync struct {
		BatchSize  int    `toml:"batch_size"`
		Interval   string `toml:"interval"`
		MaxRetries int    `toml:"max_retries"`
	} `toml:"sync"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func Defaults() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RateLimitPerMinute: 120,
		StatsCacheTTL:      5 * time.Minute,

		DataBackend:  BackendSQLite,
		SQLiteDBPath: "./data/pokertracker.db",

		TokenTTL:   7 * 24 * time.Hour,
		BcryptCost: 12,

		AMQPExchange: "pokertracker",
		AMQPQueue:    "sync_sessions",

		GoogleSheetName: "Sessions",

		SyncBatchSize:  10,
		SyncInterval:   30 * time.Second,
		SyncMaxRetries: 3,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load applies the TOML file (if present) and then the environment on top of
// the defaults. A missing file is not an error; a malformed one is.
func Load() (*Config, error) {
	cfg := Defaults()
	path := getEnv("POKER_TRACKER_CONFIG", DefaultFile)
	if err := cfg.LoadFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile overlays non-zero values from a TOML file onto c.
func (c *Config) LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	setString(&c.Host, fc.Server.Host)
	if fc.Server.Port != 0 {
		c.Port = strconv.Itoa(fc.Server.Port)
	}
	setInt(&c.RateLimitPerMinute, fc.Server.RateLimitPerMinute)
	setString(&c.DataBackend, fc.Database.Backend)
	setString(&c.SQLiteDBPath, fc.Database.Path)
	setString(&c.JWTSecret, fc.Auth.JWTSecret)
	setInt(&c.BcryptCost, fc.Auth.BcryptCost)
	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)
	setString(&c.GoogleSpreadsheetID, fc.Google.SpreadsheetID)
	setString(&c.GoogleSheetName, fc.Google.SheetName)
	setString(&c.GoogleCredentialsFile, fc.Google.CredentialsFile)
	setString(&c.GoogleOAuthTokenFile, fc.Google.OAuthTokenFile)
	setInt(&c.SyncBatchSize, fc.Sync.BatchSize)
	setInt(&c.SyncMaxRetries, fc.Sync.MaxRetries)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"server.stats_cache_ttl", fc.Server.StatsCacheTTL, &c.StatsCacheTTL},
		{"auth.token_ttl", fc.Auth.TokenTTL, &c.TokenTTL},
		{"sync.interval", fc.Sync.Interval, &c.SyncInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: invalid %s %q: %w", path, d.key, d.raw, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnv("PORT", c.Port)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.StatsCacheTTL = getEnvDuration("STATS_CACHE_TTL", c.StatsCacheTTL)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getEnvDuration("TOKEN_TTL", c.TokenTTL)
	c.BcryptCost = getEnvInt("BCRYPT_COST", c.BcryptCost)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleCredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", c.GoogleCredentialsFile)
	c.GoogleCredentialsJSON = getEnv("GOOGLE_CREDENTIALS_JSON", c.GoogleCredentialsJSON)
	c.GoogleOAuthTokenFile = getEnv("GOOGLE_OAUTH_TOKEN_FILE", c.GoogleOAuthTokenFile)

	c.SyncBatchSize = getEnvInt("SYNC_BATCH_SIZE", c.SyncBatchSize)
	c.SyncInterval = getEnvDuration("SYNC_INTERVAL", c.SyncInterval)
	c.SyncMaxRetries = getEnvInt("SYNC_MAX_RETRIES", c.SyncMaxRetries)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendSQLite))
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		problems = append(problems, "JWT secret is required (JWT_SECRET or auth.jwt_secret)")
	} else if len(c.JWTSecret) < 16 {
		problems = append(problems, "JWT secret must be at least 16 characters")
	}
	if c.TokenTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		problems = append(problems, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.BcryptCost))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			problems = append(problems, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			problems = append(problems, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for the sheets mirror")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.SyncBatchSize < 1 || c.SyncBatchSize > 1000 {
		problems = append(problems, fmt.Sprintf("invalid sync batch size %d: must be between 1 and 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second || c.SyncInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be between 1 second and 24 hours", c.SyncInterval))
	}
	if c.SyncMaxRetries < 1 {
		problems = append(problems, fmt.Sprintf("invalid sync max retries %d: must be at least 1", c.SyncMaxRetries))
	}
	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.StatsCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid stats cache TTL %v: must not be negative", c.StatsCacheTTL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
