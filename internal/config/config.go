package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	Admin        AdminConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Email        EmailConfig
	Registration RegistrationConfig
	Logging      LoggingConfig
	Environment  string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MinConnections int
}

type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
}

// AdminConfig holds the single-secret admin login. PasswordHash is a bcrypt
// hash; if only ADMIN_PASSWORD is set, it is hashed at load time so the
// plaintext never leaves this package.
type AdminConfig struct {
	PasswordHash string
}

type RateLimitConfig struct {
	PublicPerMinute int
	LoginPerMinute  int
	AdminPerMinute  int
}

type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

type EmailConfig struct {
	Enabled      bool
	ResendAPIKey string
	FromAddress  string
	FromName     string
	EventName    string
	EventVenue   string
	EventDate    string
}

type RegistrationConfig struct {
	// UniqueEmail rejects a second registration with an email that is
	// already on file, in addition to the index number constraint.
	UniqueEmail bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

// fileConfig is the optional YAML overlay. Values from the file apply only
// where the corresponding environment variable is unset; env always wins.
type fileConfig struct {
	Event struct {
		Name  string `yaml:"name"`
		Venue string `yaml:"venue"`
		Date  string `yaml:"date"`
	} `yaml:"event"`
	Email struct {
		FromAddress string `yaml:"from_address"`
		FromName    string `yaml:"from_name"`
	} `yaml:"email"`
}

// Load reads configuration from the environment, after loading an optional
// .env file and an optional YAML file named by CONFIG_FILE.
func Load() (Config, error) {
	_ = godotenv.Load()

	var file fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvInt("SERVER_PORT", 8080),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
			MinConnections: getEnvInt("DATABASE_MIN_CONNECTIONS", 2),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		},
		Admin: AdminConfig{
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute: getEnvInt("RATE_LIMIT_PUBLIC", 60),
			LoginPerMinute:  getEnvInt("RATE_LIMIT_LOGIN", 10),
			AdminPerMinute:  getEnvInt("RATE_LIMIT_ADMIN", 0),
		},
		Email: EmailConfig{
			Enabled:      getEnvBool("EMAIL_ENABLED", true),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", firstNonEmpty(file.Email.FromAddress, "tickets@lamitie.events")),
			FromName:     getEnv("EMAIL_FROM_NAME", firstNonEmpty(file.Email.FromName, "L'Amitie Festival")),
			EventName:    getEnv("EVENT_NAME", firstNonEmpty(file.Event.Name, "L'Amitie 2025")),
			EventVenue:   getEnv("EVENT_VENUE", file.Event.Venue),
			EventDate:    getEnv("EVENT_DATE", file.Event.Date),
		},
		Registration: RegistrationConfig{
			UniqueEmail: getEnvBool("REGISTRATION_UNIQUE_EMAIL", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.Admin.PasswordHash == "" {
		if plain := os.Getenv("ADMIN_PASSWORD"); plain != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
			if err != nil {
				return Config{}, fmt.Errorf("hash ADMIN_PASSWORD: %w", err)
			}
			cfg.Admin.PasswordHash = string(hash)
		}
	}

	if cfg.Environment == "development" || cfg.Environment == "test" {
		cfg.CORS.AllowAllOrigins = true
	} else {
		origins := strings.Split(getEnv("CORS_ALLOWED_ORIGINS", ""), ",")
		for _, origin := range origins {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, origin)
			}
		}
		if len(cfg.CORS.AllowedOrigins) == 0 {
			return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS is required in %s", cfg.Environment)
		}
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Email.Enabled && cfg.Email.ResendAPIKey == "" && cfg.Environment == "production" {
		return Config{}, fmt.Errorf("RESEND_API_KEY is required when email is enabled in production")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
