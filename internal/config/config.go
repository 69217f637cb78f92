package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageGorm = "gorm"
	StorageFile = "file"
)

type Config struct {
	DatabaseURL   string
	StorageDriver string
	DataDir       string
	RedisURL      string
	ServerPort    string
	Environment   string

	JWTSecret   string
	JWTExpiry   time.Duration
	JWTIssuer   string
	JWTAudience string

	EmissionFactorsPath string
	CORSOrigins         []string

	// Rate limiting
	RateLimitMaxRequests     int
	RateLimitWindow          time.Duration
	AuthRateLimitMaxRequests int

	// Seeder
	SeedManagerID       string
	SeedManagerName     string
	SeedManagerEmail    string
	SeedManagerPassword string
	SeedReportsFile     string
}

// Load reads .env if present, then the process environment. Missing optional values get
// defaults; malformed ones are errors.
func Load() (*Config, error) {
	// Docker containers use environment variables directly, so a missing .env is fine
	_ = godotenv.Load()

	expiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY: %w", err)
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", "wastetrack.db"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageGorm)),
		DataDir:       getEnv("DATA_DIR", "data"),
		RedisURL:      os.Getenv("REDIS_URL"),
		ServerPort:    getEnv("SERVER_PORT", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTExpiry:   expiry,
		JWTIssuer:   getEnv("JWT_ISSUER", "wastetrack"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),

		EmissionFactorsPath: getEnv("EMISSION_FACTORS_PATH", "config/emission_factors.json"),
		CORSOrigins:         getEnvAsList("CORS_ORIGINS", "http://localhost:3000"),

		RateLimitMaxRequests:     getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow:          getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),
		AuthRateLimitMaxRequests: getEnvAsInt("RATE_LIMIT_AUTH_MAX_REQUESTS", 10),

		SeedManagerID:       getEnv("SEED_MANAGER_ID", "900001"),
		SeedManagerName:     getEnv("SEED_MANAGER_NAME", "Site Manager"),
		SeedManagerEmail:    getEnv("SEED_MANAGER_EMAIL", "manager@example.com"),
		SeedManagerPassword: os.Getenv("SEED_MANAGER_PASSWORD"),
		SeedReportsFile:     os.Getenv("SEED_REPORTS_FILE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	if c.StorageDriver != StorageGorm && c.StorageDriver != StorageFile {
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", c.StorageDriver, StorageGorm, StorageFile)
	}
	if c.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvAsInt retrieves environment variable as int with default value
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}

// getEnvAsDuration retrieves environment variable as duration with default value
func getEnvAsDuration(key string, defaultVal string) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		valStr = defaultVal
	}
	duration, err := time.ParseDuration(valStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultVal)
	}
	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key, defaultVal string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultVal), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
