package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds file and environment driven configuration values.
// Secrets should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort       string
	JWTSecret     string
	TokenTTLHours int
	CookieSecure  bool
	// Listing
	PostsPerPage int
	// Security
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminUsernames     []string
	// OAuth identity providers
	OAuthRedirectBase  string
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	// Database: mysql (default), postgres or sqlite
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis is optional; caching and token revocation fall back to memory when RedisHost is empty
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Gin framework configuration
	GinMode string
	GinPath string
}

// Dir is the folder searched for config.json / config.yaml.
var Dir = "config"

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config file -> defaults -> .env -> environment variables
	if err := loadConfigFile(Dir, &cfg); err != nil {
		log.Printf("config: %v", err)
	}

	applyDefaults(&cfg)

	// .env only fills variables that are not already exported
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: reading .env: %v", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Defaults are applied to zero fields.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// loadConfigFile reads config.json, config.yaml or config.yml from dir, first match wins.
// A missing file is not an error; malformed content is.
func loadConfigFile(dir string, out *AppConfig) error {
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var raw map[string]any
		if strings.HasSuffix(name, ".json") {
			err = json.Unmarshal(b, &raw)
		} else {
			err = yaml.Unmarshal(b, &raw)
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		applyRaw(raw, out)
		return nil
	}
	return nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case string:
			return t
		case int:
			return strconv.Itoa(t)
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case string:
			i, _ := strconv.Atoi(t)
			return i
		}
	}
	return 0
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getStringSlice(m map[string]any, key string) []string {
	if v, ok := m[key]; ok {
		if arr, ok := v.([]any); ok {
			res := make([]string, 0, len(arr))
			for _, it := range arr {
				if s, ok := it.(string); ok {
					res = append(res, s)
				}
			}
			return res
		}
	}
	return nil
}

func section(raw map[string]any, name string) (map[string]any, bool) {
	m, ok := raw[name].(map[string]any)
	return m, ok
}

// applyRaw maps the grouped sections of a config file onto out.
func applyRaw(raw map[string]any, out *AppConfig) {
	if app, ok := section(raw, "app"); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.CookieSecure = getBool(app, "CookieSecure")
		out.PostsPerPage = getInt(app, "PostsPerPage")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if list := getStringSlice(app, "AdminUsernames"); len(list) > 0 {
			out.AdminUsernames = list
		}
	}

	if g, ok := section(raw, "gin"); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := section(raw, "database"); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := section(raw, "redis"); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if oa, ok := section(raw, "oauth"); ok {
		out.OAuthRedirectBase = getString(oa, "RedirectBase")
		out.GitHubClientID = getString(oa, "GitHubClientID")
		out.GitHubClientSecret = getString(oa, "GitHubClientSecret")
		out.GoogleClientID = getString(oa, "GoogleClientID")
		out.GoogleClientSecret = getString(oa, "GoogleClientSecret")
	}

	if lg, ok := section(raw, "log"); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.PostsPerPage == 0 {
		c.PostsPerPage = 10
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "yatube"
	}
	if c.RedisHost != "" && c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	overrideString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	overrideInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			*dst = mustParseInt(key, v)
		}
	}
	overrideBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	overrideString("APP_PORT", &c.AppPort)
	overrideString("JWT_SECRET", &c.JWTSecret)
	overrideInt("TOKEN_TTL_HOURS", &c.TokenTTLHours)
	overrideBool("COOKIE_SECURE", &c.CookieSecure)
	overrideInt("POSTS_PER_PAGE", &c.PostsPerPage)
	overrideInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)

	overrideString("OAUTH_REDIRECT_BASE_URL", &c.OAuthRedirectBase)
	overrideString("GITHUB_CLIENT_ID", &c.GitHubClientID)
	overrideString("GITHUB_CLIENT_SECRET", &c.GitHubClientSecret)
	overrideString("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	overrideString("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)

	overrideString("DB_DRIVER", &c.DBDriver)
	overrideString("DATABASE_URI", &c.DatabaseURI)
	overrideString("DB_HOST", &c.DBHost)
	overrideString("DB_PORT", &c.DBPort)
	overrideString("DB_USER", &c.DBUser)
	overrideString("DB_PASSWORD", &c.DBPassword)
	overrideString("DB_NAME", &c.DBName)

	overrideString("REDIS_HOST", &c.RedisHost)
	overrideInt("REDIS_PORT", &c.RedisPort)
	overrideInt("REDIS_DB", &c.RedisDB)
	overrideString("REDIS_PASSWORD", &c.RedisPassword)

	overrideString("LOG_LEVEL", &c.LogLevel)
	overrideString("LOG_PATH", &c.LogPath)
	overrideInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	overrideInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	overrideInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	overrideBool("LOG_COMPRESS", &c.LogCompress)

	overrideString("GIN_MODE", &c.GinMode)
	overrideString("GIN_PATH", &c.GinPath)
}

func mustParseInt(key, val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value for %s: %v", key, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
