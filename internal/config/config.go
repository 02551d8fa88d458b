// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret                     string  `mapstructure:"JWT_SECRET"`
	Port                          string  `mapstructure:"PORT"`
	DBHost                        string  `mapstructure:"DB_HOST"`
	DBPort                        string  `mapstructure:"DB_PORT"`
	DBUser                        string  `mapstructure:"DB_USER"`
	DBPassword                    string  `mapstructure:"DB_PASSWORD"`
	DBName                        string  `mapstructure:"DB_NAME"`
	DBSSLMode                     string  `mapstructure:"DB_SSLMODE"`
	DBSchemaMode                  string  `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool    `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	DBMaxOpenConns                int     `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int     `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int     `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	RedisURL                      string  `mapstructure:"REDIS_URL"`
	AllowedOrigins                string  `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags                  string  `mapstructure:"FEATURE_FLAGS"`
	Env                           string  `mapstructure:"APP_ENV"`
	SMTPHost                      string  `mapstructure:"SMTP_HOST"`
	SMTPPort                      int     `mapstructure:"SMTP_PORT"`
	SMTPUsername                  string  `mapstructure:"SMTP_USERNAME"`
	SMTPPassword                  string  `mapstructure:"SMTP_PASSWORD"`
	MailFrom                      string  `mapstructure:"MAIL_FROM"`
	MailBackend                   string  `mapstructure:"MAIL_BACKEND"`
	MailQueue                     bool    `mapstructure:"MAIL_QUEUE"`
	MailWorkers                   int     `mapstructure:"MAIL_WORKERS"`
	FrontendURL                   string  `mapstructure:"FRONTEND_URL"`
	CodeTTLHours                  int     `mapstructure:"CODE_TTL_HOURS"`
	TracingEnabled                bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter               string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint                  string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio           float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
	LogLevel                      string  `mapstructure:"LOG_LEVEL"`
	SeedPreset                    string  `mapstructure:"SEED_PRESET"`
}

// defaults boot a local development stack with no config file at all.
var defaults = map[string]any{
	"PORT":                             "8375",
	"APP_ENV":                          "development",
	"LOG_LEVEL":                        "info",
	"JWT_SECRET":                       defaultJWTSecret,
	"ALLOWED_ORIGINS":                  "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173",
	"FRONTEND_URL":                     "http://localhost:5173",
	"FEATURE_FLAGS":                    "",
	"SEED_PRESET":                      "",
	"DB_HOST":                          "localhost",
	"DB_PORT":                          "5432",
	"DB_USER":                          "user",
	"DB_PASSWORD":                      "password",
	"DB_NAME":                          "blog",
	"DB_SSLMODE":                       "disable",
	"DB_SCHEMA_MODE":                   "hybrid",
	"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE": false,
	"DB_MAX_OPEN_CONNS":                25,
	"DB_MAX_IDLE_CONNS":                5,
	"DB_CONN_MAX_LIFETIME_MINUTES":     5,
	"REDIS_URL":                        "localhost:6379",
	"MAIL_BACKEND":                     "log",
	"MAIL_QUEUE":                       false,
	"MAIL_WORKERS":                     2,
	"MAIL_FROM":                        "no-reply@blog.local",
	"SMTP_HOST":                        "",
	"SMTP_PORT":                        587,
	"SMTP_USERNAME":                    "",
	"SMTP_PASSWORD":                    "",
	"CODE_TTL_HOURS":                   72,
	"TRACING_ENABLED":                  false,
	"TRACING_EXPORTER":                 "stdout",
	"OTLP_ENDPOINT":                    "localhost:4318",
	"TRACING_SAMPLER_RATIO":            1.0,
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults are enough to boot.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("loaded profile configuration", "file", "config."+env+".yml")
	}

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.MailBackend = strings.ToLower(strings.TrimSpace(config.MailBackend))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// CodeTTL is the lifetime of verification and password reset codes.
func (c *Config) CodeTTL() time.Duration {
	if c.CodeTTLHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(c.CodeTTLHours) * time.Hour
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 {
		return errors.New("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}
	if c.CodeTTLHours <= 0 {
		return errors.New("CODE_TTL_HOURS must be positive")
	}

	if !c.IsProduction() {
		if len(c.JWTSecret) < 32 {
			slog.Warn("JWT_SECRET is shorter than 32 characters")
		}
		return nil
	}

	checks := []struct {
		bad bool
		msg string
	}{
		{c.JWTSecret == defaultJWTSecret, "JWT_SECRET must be changed from the default value in production"},
		{len(c.JWTSecret) < 32, "JWT_SECRET must be at least 32 characters in production"},
		{c.DBPassword == "" || c.DBPassword == "password", "a strong DB_PASSWORD is required in production"},
		{c.DBSSLMode == "" || c.DBSSLMode == "disable", "DB_SSLMODE must enable TLS in production"},
		{c.MailBackend == "smtp" && c.SMTPHost == "", "SMTP_HOST is required when MAIL_BACKEND=smtp"},
	}
	for _, check := range checks {
		if check.bad {
			return errors.New(check.msg)
		}
	}
	if c.AllowedOrigins == "*" {
		slog.Warn("ALLOWED_ORIGINS allows every origin in production")
	}
	return nil
}
