package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort string
	ServerEnv  string
	ServerHost string // Swagger host
	LogLevel   string

	// Database
	DatabaseURL string

	// JWT
	JWTSecretKey              string
	JWTAccessTokenExpireMin   int
	JWTRefreshTokenExpireDays int

	// Search
	SearchMaxResults      int
	SearchDefaultRadiusKm float64

	// Bank details encryption
	BankDetailsSecret string

	// Geocoder
	GeocoderBaseURL string
	GeocoderRPS     float64
	GeocodeCacheTTL time.Duration

	// Internal admin API
	InternalAPIKey string

	// SigNoz
	SigNozEndpoint string

	// Maintenance worker
	MaintenanceSchedule  string
	MaintenanceBatchSize int
}

func Load() *Config {
	return &Config{
		// Server
		ServerPort: getEnv("SERVER_PORT", "3000"),
		ServerEnv:  getEnv("SERVER_ENV", "development"),
		ServerHost: getEnv("SERVER_HOST", "localhost:3000"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		// Database - DATABASE_URL first, then individual variables
		DatabaseURL: getDatabaseURL(),

		// JWT
		JWTSecretKey:              getEnv("JWT_SECRET_KEY", ""),
		JWTAccessTokenExpireMin:   getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 15),
		JWTRefreshTokenExpireDays: getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRE_DAYS", 7),

		// Search
		SearchMaxResults:      getEnvAsInt("SEARCH_MAX_RESULTS", 200),
		SearchDefaultRadiusKm: getEnvAsFloat("SEARCH_DEFAULT_RADIUS_KM", 20),

		// Bank details
		BankDetailsSecret: getEnv("BANK_DETAILS_SECRET", ""),

		// Geocoder (Base Adresse Nationale)
		GeocoderBaseURL: getEnv("GEOCODER_BASE_URL", "https://api-adresse.data.gouv.fr"),
		GeocoderRPS:     getEnvAsFloat("GEOCODER_RPS", 10),
		GeocodeCacheTTL: getEnvAsDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour),

		InternalAPIKey: getEnv("INTERNAL_API_KEY", ""),

		// SigNoz
		SigNozEndpoint: getEnv("SIGNOZ_ENDPOINT", ""),

		// Maintenance
		MaintenanceSchedule:  getEnv("MAINTENANCE_SCHEDULE", ""),
		MaintenanceBatchSize: getEnvAsInt("MAINTENANCE_BATCH_SIZE", 100),
	}
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.ServerEnv == "development"
}

// Validate checks the settings the API cannot start without
func (c *Config) Validate() error {
	if c.JWTSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.BankDetailsSecret == "" {
		return fmt.Errorf("BANK_DETAILS_SECRET is required")
	}
	if c.SearchMaxResults <= 0 {
		return fmt.Errorf("SEARCH_MAX_RESULTS must be positive, got %d", c.SearchMaxResults)
	}
	if c.SearchDefaultRadiusKm < 0 {
		return fmt.Errorf("SEARCH_DEFAULT_RADIUS_KM must not be negative, got %v", c.SearchDefaultRadiusKm)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("720h") or plain seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getDatabaseURL returns DATABASE_URL or builds it from individual env vars
func getDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "postgres")
	password := getEnv("POSTGRES_PASSWORD", "")
	dbname := getEnv("POSTGRES_DB", "marchelocal")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}
