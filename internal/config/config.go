package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabasePath   string
	JWTSecret      string
	AllowedOrigins []string
	Environment    string // "development" or "production"
	LogLevel       string

	// Activity events older than this are pruned by the maintenance scheduler.
	EventRetention      time.Duration
	MaintenanceSchedule string // cron spec

	// Per-client budget for the login and register endpoints.
	AuthRequestsPerMinute int
	AuthBurst             int
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from an optional .env file, an optional YAML file
// and environment variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	v.AutomaticEnv()

	cfg := &Config{
		ServerPort:            v.GetInt("port"),
		DatabasePath:          v.GetString("database_path"),
		JWTSecret:             v.GetString("jwt_secret"),
		AllowedOrigins:        splitList(v.GetString("cors_origins")),
		Environment:           strings.ToLower(v.GetString("app_env")),
		LogLevel:              v.GetString("log_level"),
		MaintenanceSchedule:   v.GetString("maintenance_schedule"),
		AuthRequestsPerMinute: v.GetInt("auth_requests_per_minute"),
		AuthBurst:             v.GetInt("auth_burst"),
	}

	retention, err := time.ParseDuration(v.GetString("event_retention"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_RETENTION: %w", err)
	}
	cfg.EventRetention = retention

	if frontend := v.GetString("frontend_url"); frontend != "" {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, frontend)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and sane.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT %d", c.ServerPort)
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH must not be empty")
	}
	if c.EventRetention <= 0 {
		return fmt.Errorf("EVENT_RETENTION must be positive, got %s", c.EventRetention)
	}
	if c.AuthRequestsPerMinute <= 0 || c.AuthBurst <= 0 {
		return errors.New("auth rate limits must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 5000)
	v.SetDefault("database_path", "./pitchzone.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors_origins", "http://localhost:5173,http://localhost:4173")
	v.SetDefault("frontend_url", "")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("event_retention", "2160h") // 90 days
	v.SetDefault("maintenance_schedule", "@daily")
	v.SetDefault("auth_requests_per_minute", 20)
	v.SetDefault("auth_burst", 5)
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
