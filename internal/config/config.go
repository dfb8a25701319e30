// Package config loads runtime configuration from the environment and the
// optional equipment settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/types"
)

// EquipmentFileName is the settings file looked up in the data directory
const EquipmentFileName = "equipment.yaml"

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Security  SecurityConfig
	Scheduler SchedulerConfig
	LogLevel  string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StorageConfig locates the SQLite database and equipment file.
type StorageConfig struct {
	DataDir      string
	SettingsFile string
}

// CacheConfig controls the analytics cache. Redis is used only when RedisAddr is set.
type CacheConfig struct {
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// SecurityConfig holds the request limits.
type SecurityConfig struct {
	RateLimitPerMin int
	AllowedOrigins  []string
	EnableHSTS      bool
}

// SchedulerConfig holds cron expressions for background jobs.
type SchedulerConfig struct {
	SweepSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when everything comes from the environment.
		_ = godotenv.Load()
	}

	dataDir := getenvWithDefault("DATA_DIR", "./data")

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("PORT", "8080"),
		},
		Storage: StorageConfig{
			DataDir:      dataDir,
			SettingsFile: getenvWithDefault("SETTINGS_FILE", filepath.Join(dataDir, EquipmentFileName)),
		},
		Cache: CacheConfig{
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitList(getenvWithDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
			EnableHSTS:     os.Getenv("ENABLE_HSTS") == "true",
		},
		Scheduler: SchedulerConfig{
			SweepSchedule: getenvWithDefault("SWEEP_SCHEDULE", "@every 1h"),
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.Cache.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Security.RateLimitPerMin, err = getenvInt("RATE_LIMIT_PER_MIN", 120); err != nil {
		return nil, err
	}
	if cfg.Cache.TTL, err = getenvDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return apperrors.NewConfigurationError("config is nil", nil)
	}

	var problem string
	switch {
	case c.Server.Port == "":
		problem = "PORT must be provided"
	case c.Storage.DataDir == "":
		problem = "DATA_DIR must not be empty"
	case c.Scheduler.SweepSchedule == "":
		problem = "SWEEP_SCHEDULE must not be empty"
	case c.Cache.TTL <= 0:
		problem = "CACHE_TTL must be positive"
	case c.Security.RateLimitPerMin < 0:
		problem = "RATE_LIMIT_PER_MIN must not be negative"
	case c.Cache.RedisDB < 0:
		problem = "REDIS_DB must not be negative"
	default:
		return nil
	}

	return apperrors.NewConfigurationError(problem, nil)
}

// Equipment is the on-disk shape of the settings file.
type Equipment struct {
	Grinder *types.GrinderConfiguration `yaml:"grinder"`
	Basket  *types.BasketConfiguration  `yaml:"basket"`
}

// ReadEquipment reads the YAML settings file. A missing file yields an empty
// Equipment and no error.
func ReadEquipment(path string) (*Equipment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Equipment{}, nil
		}
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	var eq Equipment
	if err := yaml.Unmarshal(data, &eq); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}

	return &eq, nil
}

// WriteEquipment writes eq to path, creating the parent directory.
func WriteEquipment(path string, eq *Equipment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	data, err := yaml.Marshal(eq)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	return nil
}

// DefaultEquipment returns the grinder and basket used before the user configures any.
func DefaultEquipment() *Equipment {
	g := types.DefaultGrinderConfiguration()
	b := types.DefaultBasketConfiguration()
	return &Equipment{Grinder: &g, Basket: &b}
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperrors.NewConfigurationError(key+" must be an integer", err)
	}
	return n, nil
}

// getenvDuration accepts Go durations ("90s") or bare seconds ("90").
func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, apperrors.NewConfigurationError(key+" must be a duration", err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
