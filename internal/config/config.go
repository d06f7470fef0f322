package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the stardex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Data      DataConfig      `yaml:"data"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	PathPrefix      string `yaml:"path_prefix"` // e.g. "/api", empty for none
}

// DatabaseConfig holds catalog database settings.
type DatabaseConfig struct {
	Driver           string `yaml:"driver"` // sqlite, postgres (default: sqlite)
	DSN              string `yaml:"dsn"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// DataConfig locates the source export files.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// CacheConfig holds snapshot cache settings.
type CacheConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	Watch       bool   `yaml:"watch"`
	DebounceSec int    `yaml:"debounce_sec"`
}

// SearchConfig holds query limit settings.
type SearchConfig struct {
	AutocompleteDefaultLimit int `yaml:"autocomplete_default_limit"`
	AutocompleteMaxLimit     int `yaml:"autocomplete_max_limit"`
	TypeNameDefaultLimit     int `yaml:"type_name_default_limit"`
	TypeNameMaxLimit         int `yaml:"type_name_max_limit"`
}

// RateLimitConfig holds per-client rate limit settings.
type RateLimitConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Backend    string   `yaml:"backend"` // memory, redis (default: memory)
	Addrs      []string `yaml:"addrs"`
	Password   string   `yaml:"password"`
	GeneralRPS int      `yaml:"general_rps"`
	SearchRPS  int      `yaml:"search_rps"`
	Burst      int      `yaml:"burst"`
	TrustProxy bool     `yaml:"trust_proxy"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the STARDEX_ENV variable,
// defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("STARDEX_ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = filepath.Join(c.Data.Dir, "catalog.db")
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(c.Data.Dir, "snapshot.bin")
	}
	if c.Cache.DebounceSec <= 0 {
		c.Cache.DebounceSec = 2
	}
	if c.Search.AutocompleteDefaultLimit <= 0 {
		c.Search.AutocompleteDefaultLimit = 10
	}
	if c.Search.AutocompleteMaxLimit <= 0 {
		c.Search.AutocompleteMaxLimit = 50
	}
	if c.Search.TypeNameDefaultLimit <= 0 {
		c.Search.TypeNameDefaultLimit = 50
	}
	if c.Search.TypeNameMaxLimit <= 0 {
		c.Search.TypeNameMaxLimit = 100
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.GeneralRPS <= 0 {
		c.RateLimit.GeneralRPS = 100
	}
	if c.RateLimit.SearchRPS <= 0 {
		c.RateLimit.SearchRPS = 20
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.PathPrefix != "" && !strings.HasPrefix(c.HTTP.PathPrefix, "/") {
		return fmt.Errorf("http.path_prefix must start with \"/\", got %q", c.HTTP.PathPrefix)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the %s driver", c.Database.Driver)
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
		// ok
	default:
		return fmt.Errorf("ratelimit.backend must be \"memory\" or \"redis\", got %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Enabled && c.RateLimit.Backend == "redis" && len(c.RateLimit.Addrs) == 0 {
		return fmt.Errorf("ratelimit.addrs is required for the redis backend")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Environment-agnostic fallback
	if path := filepath.Join("config", "config.yaml"); fileExists(path) {
		return path
	}
	if path := filepath.Join(projectRoot, "config", "config.yaml"); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
