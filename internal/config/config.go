// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend drivers.
const (
	BackendAuto   = "auto"
	BackendREST   = "rest"
	BackendSQLite = "sqlite"
)

// Storage drivers.
const (
	StorageBackend = "backend"
	StorageS3      = "s3"
	StorageLocal   = "local"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Backend  BackendConfig
	Storage  StorageConfig
	Catalog  CatalogConfig
	Search   SearchConfig
	Auth     AuthConfig
	DataPath string
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // default: 8080
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 0 (SSE and websocket streams stay open)
	IdleTimeout  time.Duration // default: 60s
	CORSOrigins  []string
	// PublicURL is the base used to build login redirects, e.g. https://purriosity.de
	PublicURL string
}

// BackendConfig holds the hosted backend (PostgREST) connection.
type BackendConfig struct {
	Driver  string // auto, rest or sqlite
	URL     string
	AnonKey string
	Timeout time.Duration
	// SQLitePath is used by the sqlite driver (default: {data}/purriosity.db).
	SQLitePath string
	// ProductsHaveIsActive states whether products.is_active exists in the schema.
	ProductsHaveIsActive bool
}

// StorageConfig holds media upload configuration.
type StorageConfig struct {
	Driver string // backend, s3 or local
	Bucket string // default: media

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	LocalPath string
	LocalURL  string
}

// CatalogConfig holds catalog mapping configuration.
type CatalogConfig struct {
	// SynonymsFile is an optional YAML file replacing the built-in tag synonym table.
	SynonymsFile string
	// WatchSynonyms reloads SynonymsFile when it changes on disk.
	WatchSynonyms bool
}

// SearchConfig holds search configuration.
type SearchConfig struct {
	Debounce time.Duration // default: 300ms
	// IndexPath is where the blog full-text index lives (default: {data}/search).
	IndexPath string
}

// AuthConfig holds access token verification settings.
type AuthConfig struct {
	// JWTSecret verifies HS256 tokens issued by the hosted backend.
	JWTSecret string
	// LoginPath is where unauthenticated users are sent (default: /login).
	LoginPath string
}

// Usable reports whether both backend credentials are present.
func (b BackendConfig) Usable() bool {
	return b.URL != "" && b.AnonKey != ""
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	cfg, err := Load(fs, os.Args[1:])
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load parses args with the given flag set and builds the configuration.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for local data (sqlite, search index, uploads)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0, disabled)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	backendDriver := fs.String("backend", "", "Backend driver: auto, rest or sqlite (default: auto)")
	backendURL := fs.String("supabase-url", "", "Hosted backend URL")
	sqlitePath := fs.String("sqlite-path", "", "SQLite database path for the sqlite driver")

	storageDriver := fs.String("storage", "", "Media storage driver: backend, s3 or local (default: backend)")
	synonymsFile := fs.String("synonyms-file", "", "YAML file with tag synonyms")
	debounce := fs.String("search-debounce", "", "Live search debounce (default: 300ms)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine; existing env vars are never overwritten.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue("", "CORS_ORIGINS", "*")),
			PublicURL:   strings.TrimRight(getConfigValue("", "PUBLIC_URL", ""), "/"),
		},
		Backend: BackendConfig{
			Driver:               strings.ToLower(getConfigValue(*backendDriver, "BACKEND_DRIVER", BackendAuto)),
			URL:                  strings.TrimRight(getConfigValue(*backendURL, "SUPABASE_URL", ""), "/"),
			AnonKey:              getConfigValue("", "SUPABASE_ANON_KEY", ""),
			SQLitePath:           getConfigValue(*sqlitePath, "SQLITE_PATH", ""),
			ProductsHaveIsActive: getBoolConfigValue("", "PRODUCTS_HAVE_IS_ACTIVE", true),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getConfigValue(*storageDriver, "STORAGE_DRIVER", StorageBackend)),
			Bucket:      getConfigValue("", "STORAGE_BUCKET", "media"),
			S3Region:    getConfigValue("", "S3_REGION", "eu-central-1"),
			S3Endpoint:  getConfigValue("", "S3_ENDPOINT", ""),
			S3AccessKey: getConfigValue("", "S3_ACCESS_KEY", ""),
			S3SecretKey: getConfigValue("", "S3_SECRET_KEY", ""),
			S3PublicURL: strings.TrimRight(getConfigValue("", "S3_PUBLIC_URL", ""), "/"),
			LocalPath:   getConfigValue("", "LOCAL_STORAGE_PATH", ""),
			LocalURL:    strings.TrimRight(getConfigValue("", "LOCAL_STORAGE_URL", "/media"), "/"),
		},
		Catalog: CatalogConfig{
			SynonymsFile:  getConfigValue(*synonymsFile, "TAG_SYNONYMS_FILE", ""),
			WatchSynonyms: getBoolConfigValue("", "TAG_SYNONYMS_WATCH", true),
		},
		Search: SearchConfig{
			IndexPath: getConfigValue("", "SEARCH_INDEX_PATH", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getConfigValue("", "SUPABASE_JWT_SECRET", ""),
			LoginPath: getConfigValue("", "LOGIN_PATH", "/login"),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"", "BACKEND_TIMEOUT", "10s", &cfg.Backend.Timeout},
		{*debounce, "SEARCH_DEBOUNCE", "300ms", &cfg.Search.Debounce},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Backend.Driver {
	case BackendAuto, BackendREST, BackendSQLite:
	default:
		return fmt.Errorf("invalid backend driver: %s (must be auto, rest, or sqlite)", c.Backend.Driver)
	}

	switch c.Storage.Driver {
	case StorageBackend, StorageLocal:
	case StorageS3:
		if c.Storage.S3PublicURL == "" {
			return errors.New("S3_PUBLIC_URL is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be backend, s3, or local)", c.Storage.Driver)
	}

	if c.Search.Debounce < 0 {
		return errors.New("search debounce cannot be negative")
	}

	return nil
}

// expandPaths resolves the data directory and the paths derived from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	base, err := expandPath(c.DataPath, filepath.Join(homeDir, "Purriosity"))
	if err != nil {
		return err
	}
	c.DataPath = base

	if c.Backend.SQLitePath, err = expandPath(c.Backend.SQLitePath, filepath.Join(base, "purriosity.db")); err != nil {
		return err
	}
	if c.Search.IndexPath, err = expandPath(c.Search.IndexPath, filepath.Join(base, "search")); err != nil {
		return err
	}
	if c.Storage.LocalPath, err = expandPath(c.Storage.LocalPath, filepath.Join(base, "media")); err != nil {
		return err
	}
	if c.Catalog.SynonymsFile != "" {
		if c.Catalog.SynonymsFile, err = expandPath(c.Catalog.SynonymsFile, ""); err != nil {
			return err
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// splitList splits a comma separated value, dropping blanks.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
