// Package config loads judgecore's runtime configuration from environment
// variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from environment
// variables. Field names follow the spec's authoritative env var list;
// the JUDGECORE_* and LOG_* vars are ambient additions.
type Config struct {
	// Mode selects the runtime mode: "api" or "listener".
	Mode string `env:"JUDGECORE_MODE" envDefault:"api"`

	Host string `env:"JUDGECORE_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"JUDGECORE_PORT" envDefault:"8080"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBHost      string `env:"DB_HOST"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME"`

	// Redis
	RedisURL          string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisSessionDB    int    `env:"REDIS_SESSION_DB" envDefault:"1"`
	RedisCodeSaveDB   int    `env:"REDIS_CODE_SAVE_DB" envDefault:"10"`
	RedisSessionPfx   string `env:"REDIS_SESSION_PREFIX" envDefault:"session:"`
	RedisCodeSavePfx  string `env:"REDIS_CODE_SAVE_PREFIX" envDefault:"code_save"`

	// Auth / sessions
	SSOIntrospectURL    string `env:"SSO_INTROSPECT_URL"`
	SSOOIDCIssuerURL    string `env:"SSO_OIDC_ISSUER_URL"`
	SSOClientID         string `env:"SSO_CLIENT_ID"`
	SSOClientSecret     string `env:"SSO_CLIENT_SECRET"`
	SSOTokenURL         string `env:"SSO_TOKEN_URL"`
	TokenCookieName     string `env:"TOKEN_COOKIE_NAME" envDefault:"judgecore_token"`
	LocalTokenTTLSecond int    `env:"LOCAL_TOKEN_TTL_SECONDS" envDefault:"3600"`
	SessionEncKey       string `env:"SESSION_ENCRYPTION_KEY"`

	// Autosave
	CodeSaveTTLSeconds int `env:"CODE_SAVE_TTL_SECONDS" envDefault:"5"`

	// Judge workers
	JudgeServerToken string `env:"JUDGE_SERVER_TOKEN"`
	TestCaseDataPath string `env:"TEST_CASE_DATA_PATH"`

	// Login rate limiting
	LoginRateLimitMax    int    `env:"LOGIN_RATE_LIMIT_MAX" envDefault:"10"`
	LoginRateLimitWindow string `env:"LOGIN_RATE_LIMIT_WINDOW" envDefault:"15m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Migrations
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresURL returns DatabaseURL if set, otherwise builds one from the
// split DB_* variables.
func (c *Config) PostgresURL() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
