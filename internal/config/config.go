package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Auth:      auth,
		Log:       loadLogConfig(),
		Telemetry: loadTelemetryConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	FrontendOrigin string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "4000"
	}

	origin := strings.TrimSpace(os.Getenv("FRONTEND_ORIGIN"))
	if origin == "" {
		origin = "http://localhost:3000"
	}

	if strings.Contains(port, ":") {
		// Accept ":4000" or "127.0.0.1:4000" verbatim.
		return ServerConfig{Addr: port, FrontendOrigin: origin}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, FrontendOrigin: origin}, nil
}

// AuthConfig describes the shared-password gate. With no SITE_PASSWORD the
// gate is disabled entirely, which suits local development.
type AuthConfig struct {
	SitePassword  string
	TokenSecret   string
	TokenTTL      time.Duration
	SecureCookies bool
}

// Enabled reports whether a site password was configured.
func (c AuthConfig) Enabled() bool {
	return c.SitePassword != ""
}

func loadAuthConfig() (AuthConfig, error) {
	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	ttl := 12 * time.Hour
	if v := strings.TrimSpace(os.Getenv("AUTH_TOKEN_TTL")); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("invalid AUTH_TOKEN_TTL value: %q", v)
		}
		ttl = parsed
	}

	return AuthConfig{
		SitePassword:  os.Getenv("SITE_PASSWORD"),
		TokenSecret:   secret,
		TokenTTL:      ttl,
		SecureCookies: envBool("SECURE_COOKIES", false),
	}, nil
}

// LogConfig describes structured logging output.
type LogConfig struct {
	Level slog.Level
	File  string
}

func loadLogConfig() LogConfig {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return LogConfig{Level: level, File: os.Getenv("LOG_FILE")}
}

// TelemetryConfig gates the OpenTelemetry file exporters.
type TelemetryConfig struct {
	Enabled bool
	Dir     string
}

func loadTelemetryConfig() TelemetryConfig {
	dir := os.Getenv("TELEMETRY_DIR")
	if dir == "" {
		dir = "logs"
	}
	return TelemetryConfig{Enabled: envBool("TELEMETRY_ENABLED", false), Dir: dir}
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
