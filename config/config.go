package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Media     MediaConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type ServerConfig struct {
	Port            string
	GinMode         string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver   string
	URL      string
	LogLevel string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type CookieConfig struct {
	Domain string
	Secure bool
}

type MediaConfig struct {
	// Backend is "cloudinary", "gridfs" or empty for no uploads.
	Backend string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	MongoURI      string
	MongoDatabase string
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	AuthPerMinute     int
	AuthBurst         int
}

type JobsConfig struct {
	// ReconcileInterval is how often every store owner's lists are
	// repaired. Zero disables the sweep.
	ReconcileInterval time.Duration
}

var (
	ErrMissingAccessSecret  = errors.New("ACCESS_TOKEN_SECRET is required")
	ErrMissingRefreshSecret = errors.New("REFRESH_TOKEN_SECRET is required")
)

// Load reads the process environment. Token signing keys have no defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			GinMode:         getEnv("GIN_MODE", "debug"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			URL:      os.Getenv("DB_URL"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			AccessSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
			RefreshSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
			AccessTTL:     time.Duration(getEnvAsInt("ACCESS_TOKEN_EXPIRY_MINUTES", 60)) * time.Minute,
			RefreshTTL:    time.Duration(getEnvAsInt("REFRESH_TOKEN_EXPIRY_HOURS", 72)) * time.Hour,
			Issuer:        getEnv("JWT_ISSUER", "servicesync-server"),
		},
		Cookie: CookieConfig{
			Domain: os.Getenv("COOKIE_DOMAIN"),
			Secure: getEnvAsBool("COOKIE_SECURE", false),
		},
		Media: MediaConfig{
			Backend:             strings.ToLower(os.Getenv("MEDIA_BACKEND")),
			CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "servicesync"),
			MongoURI:            os.Getenv("MONGO_URI"),
			MongoDatabase:       getEnv("MONGO_DATABASE", "servicesync"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "servicesync-server"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
			AuthPerMinute:     getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 10),
			AuthBurst:         getEnvAsInt("AUTH_RATE_LIMIT_BURST", 5),
		},
		Jobs: JobsConfig{
			ReconcileInterval: time.Duration(getEnvAsInt("RECONCILE_INTERVAL_MINUTES", 15)) * time.Minute,
		},
	}

	if cfg.JWT.AccessSecret == "" {
		return nil, ErrMissingAccessSecret
	}
	if cfg.JWT.RefreshSecret == "" {
		return nil, ErrMissingRefreshSecret
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
