package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"

	defaultJWTSecret = "your-secret-key"
)

type Config struct {
	// Server
	Port       string
	Env        string
	AppVersion string

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret              string
	JWTAlgorithm           string
	JWTAccessTokenDuration time.Duration

	// OTP
	OTPLength          int
	OTPExpiry          time.Duration
	OTPMaxAttempts     int
	OTPSendsPerHour    int
	OTPCleanupInterval time.Duration

	// Security
	BcryptCost        int
	RateLimitRequests int
	RateLimitDuration time.Duration

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string

	// SMS
	SMSProvider           string // "mock" | "seven" | "clicksend"
	SMSFrom               string
	SevenAPIKey           string
	ClickSendUsername     string
	ClickSendAPIKey       string
	SMSBreakerMaxFailures int
	SMSBreakerTimeout     time.Duration
}

func New() *Config {
	return &Config{
		// Server
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", EnvDevelopment),
		AppVersion: getEnv("APP_VERSION", "1.0.0"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "buildcontrol"),
		DBPassword:  getEnv("DB_PASSWORD", "password"),
		DBName:      getEnv("DB_NAME", "buildcontrol"),
		DBSSLMode:   getEnv("DB_SSL_MODE", "disable"),

		// Redis
		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", true),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// JWT
		JWTSecret:              getEnv("JWT_SECRET", defaultJWTSecret),
		JWTAlgorithm:           strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
		JWTAccessTokenDuration: getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", "30m"),

		// OTP
		OTPLength:          getEnvAsInt("OTP_LENGTH", 6),
		OTPExpiry:          getEnvAsDuration("OTP_EXPIRY", "5m"),
		OTPMaxAttempts:     getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
		OTPSendsPerHour:    getEnvAsInt("OTP_SENDS_PER_HOUR", 5),
		OTPCleanupInterval: getEnvAsDuration("OTP_CLEANUP_INTERVAL", "0s"),

		// Security
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),

		// SMS
		SMSProvider:           strings.ToLower(getEnv("SMS_PROVIDER", "mock")),
		SMSFrom:               getEnv("SMS_FROM", "BuildCtrl"),
		SevenAPIKey:           getEnv("SEVEN_API_KEY", ""),
		ClickSendUsername:     getEnv("CLICKSEND_USERNAME", ""),
		ClickSendAPIKey:       getEnv("CLICKSEND_API_KEY", ""),
		SMSBreakerMaxFailures: getEnvAsInt("SMS_BREAKER_MAX_FAILURES", 5),
		SMSBreakerTimeout:     getEnvAsDuration("SMS_BREAKER_TIMEOUT", "30s"),
	}
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of development, staging, production (got %q)", c.Env))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported JWT_ALGORITHM %q", c.JWTAlgorithm))
	}
	if c.Env == EnvProduction && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWTAccessTokenDuration <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_DURATION must be positive"))
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		errs = append(errs, errors.New("OTP_LENGTH must be between 4 and 10"))
	}
	if c.OTPExpiry <= 0 {
		errs = append(errs, errors.New("OTP_EXPIRY must be positive"))
	}
	if c.OTPMaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	if c.SMSBreakerMaxFailures < 1 {
		errs = append(errs, errors.New("SMS_BREAKER_MAX_FAILURES must be at least 1"))
	}

	return errors.Join(errs...)
}

// DatabaseDSN prefers DATABASE_URL and falls back to the discrete DB_* keys.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
