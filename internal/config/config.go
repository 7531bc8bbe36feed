// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"warden/internal/domain"
	"warden/internal/service/security"
)

// Identity backend selectors for AuthMethod.
const (
	AuthMethodDatabase  = "database"
	AuthMethodDirectory = "directory"
)

const insecureDevSecret = "warden-dev-secret-do-not-use"

// Settings is the optional YAML overlay for the structured settings that do
// not fit single environment variables.
type Settings struct {
	Passwords domain.PasswordRequirements `yaml:"password_requirements"`
	Directory security.DirectoryConfig    `yaml:"directory"`
}

// Config holds the server configuration.
type Config struct {
	DBPath     string // path to the SQLite store (default "warden.sqlite")
	ListenAddr string // HTTP listen address (default ":8080")

	TLSCertFile       string // TLS certificate file path (optional)
	TLSKeyFile        string // TLS private key file path (optional)
	ClientCAFile      string // CA bundle for client certificates (PKI mode)
	PKIEnabled        bool   // authenticate operators by client certificate
	AllowInsecureHTTP bool   // allow non-TLS listener in production

	JWTSecret  string        // HS256 secret for session tokens
	TokenTTL   time.Duration // session token lifetime (default 1h)
	AuthMethod string        // "database" (default) or "directory"

	// Bootstrap admin created on first run with an empty store.
	AdminUsername string
	AdminPassword string

	LogLevel string // debug, info, warn, error (default "info")
	Env      string // "development" (default) or "production"

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	Settings Settings

	// Warnings collects non-fatal findings during loading. They are logged
	// by the caller once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasTLS reports whether a server certificate is configured.
func (c *Config) HasTLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// LoadFromEnv loads the configuration from environment variables plus the
// optional YAML settings file named by SETTINGS_FILE.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:        os.Getenv("DB_PATH"),
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		TLSCertFile:   os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:    os.Getenv("TLS_KEY_FILE"),
		ClientCAFile:  os.Getenv("CLIENT_CA_FILE"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AuthMethod:    strings.ToLower(os.Getenv("AUTH_METHOD")),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Env:           os.Getenv("ENV"),
		PKIEnabled:    parseBoolEnvDefault("PKI_ENABLED", false),
	}

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
	if strings.EqualFold(os.Getenv("ALLOW_INSECURE_HTTP"), "true") {
		cfg.AllowInsecureHTTP = true
	}

	if err := loadSettingsFile(cfg, os.Getenv("SETTINGS_FILE")); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSettingsFile(cfg *Config, path string) error {
	if path == "" {
		path = "warden.yaml"
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg.Settings); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "warden.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.AuthMethod == "" {
		cfg.AuthMethod = AuthMethodDatabase
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 100
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = insecureDevSecret
		cfg.Warnings = append(cfg.Warnings,
			"JWT_SECRET not set, using an insecure development secret")
	}
	if cfg.Settings.Passwords == (domain.PasswordRequirements{}) {
		cfg.Settings.Passwords = domain.PasswordRequirements{
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumber:    true,
			MinLength:        12,
		}
	}
}

func validate(cfg *Config) error {
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	switch cfg.AuthMethod {
	case AuthMethodDatabase:
	case AuthMethodDirectory:
		if cfg.Settings.Directory.URL == "" {
			return fmt.Errorf("AUTH_METHOD=directory requires directory.url in the settings file")
		}
	default:
		return fmt.Errorf("unknown AUTH_METHOD %q (expected %s or %s)",
			cfg.AuthMethod, AuthMethodDatabase, AuthMethodDirectory)
	}
	if cfg.PKIEnabled {
		if !cfg.HasTLS() {
			return fmt.Errorf("PKI_ENABLED requires TLS_CERT_FILE and TLS_KEY_FILE")
		}
		if cfg.ClientCAFile == "" {
			return fmt.Errorf("PKI_ENABLED requires CLIENT_CA_FILE")
		}
	}

	// Production mode: insecure defaults are fatal.
	if cfg.IsProduction() {
		if cfg.JWTSecret == insecureDevSecret {
			return fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if !cfg.HasTLS() && !cfg.AllowInsecureHTTP {
			return fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
	}
	return nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "":
		return defaultVal
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	default:
		return defaultVal
	}
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines are KEY=VALUE; comments (#) and blanks are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Real environment variables win over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
