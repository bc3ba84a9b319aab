package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the resolved runtime configuration. Values come from the
// optional YAML file named by CONFIG_FILE, overridden by environment
// variables (a .env file is loaded into the environment by main).
type Settings struct {
	Port           string   `yaml:"port"`
	GinMode        string   `yaml:"ginMode"`
	Environment    string   `yaml:"environment"`
	LogLevel       string   `yaml:"logLevel"`
	LogFile        string   `yaml:"logFile"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	TrustedProxies []string `yaml:"trustedProxies"`

	DBDriver    string `yaml:"dbDriver"`
	DBHost      string `yaml:"dbHost"`
	DBPort      string `yaml:"dbPort"`
	DBDatabase  string `yaml:"dbDatabase"`
	DBUsername  string `yaml:"dbUsername"`
	DBPassword  string `yaml:"dbPassword"`
	DatabaseURL string `yaml:"databaseURL"`
	DebugSQL    bool   `yaml:"debugSQL"`

	JWTSecret      string `yaml:"jwtSecret"`
	JWTIssuer      string `yaml:"jwtIssuer"`
	JWTExpireHours int    `yaml:"jwtExpireHours"`

	StorageDriver  string `yaml:"storageDriver"`
	UploadPath     string `yaml:"uploadPath"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AdminName     string `yaml:"adminName"`
	AdminEmail    string `yaml:"adminEmail"`
	AdminPassword string `yaml:"adminPassword"`

	RedisAddr         string `yaml:"redisAddr"`
	RedisPassword     string `yaml:"redisPassword"`
	AuthRateLimit     int    `yaml:"authRateLimit"`
	AuthRateWindowSec int    `yaml:"authRateWindowSeconds"`
}

func defaults() Settings {
	return Settings{
		Port:              "8080",
		LogLevel:          "info",
		LogFile:           LogFilePath(),
		DBDriver:          "mysql",
		DBHost:            "127.0.0.1",
		DBPort:            "3306",
		JWTExpireHours:    24,
		StorageDriver:     "disk",
		UploadPath:        "./uploads",
		AuthRateLimit:     20,
		AuthRateWindowSec: 60,
		AdminName:         "Administrator",
	}
}

// Load resolves settings from CONFIG_FILE (if set) and the environment.
func Load() (Settings, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideString(&cfg.Port, "SERVER_PORT")
	overrideString(&cfg.GinMode, "GIN_MODE")
	overrideString(&cfg.Environment, "ENVIRONMENT")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.LogFile, "LOG_FILE")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}

	overrideString(&cfg.DBDriver, "DB_DRIVER")
	overrideString(&cfg.DBHost, "DB_HOST")
	overrideString(&cfg.DBPort, "DB_PORT")
	overrideString(&cfg.DBDatabase, "DB_DATABASE")
	overrideString(&cfg.DBUsername, "DB_USERNAME")
	overrideString(&cfg.DBPassword, "DB_PASSWORD")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideBool(&cfg.DebugSQL, "DEBUG_SQL")

	overrideString(&cfg.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.JWTIssuer, "JWT_ISSUER")
	overrideInt(&cfg.JWTExpireHours, "JWT_EXPIRE_HOURS")

	overrideString(&cfg.StorageDriver, "STORAGE_DRIVER")
	overrideString(&cfg.UploadPath, "UPLOAD_PATH")
	overrideString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	overrideString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	overrideString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	overrideString(&cfg.MinioBucket, "MINIO_BUCKET")
	overrideBool(&cfg.MinioUseSSL, "MINIO_USE_SSL")

	overrideString(&cfg.AdminName, "ADMIN_NAME")
	overrideString(&cfg.AdminEmail, "ADMIN_EMAIL")
	overrideString(&cfg.AdminPassword, "ADMIN_PASSWORD")

	overrideString(&cfg.RedisAddr, "REDIS_ADDR")
	overrideString(&cfg.RedisPassword, "REDIS_PASSWORD")
	overrideInt(&cfg.AuthRateLimit, "AUTH_RATE_LIMIT")
	overrideInt(&cfg.AuthRateWindowSec, "AUTH_RATE_WINDOW_SECONDS")

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TokenTTL is the access token lifetime.
func (s Settings) TokenTTL() time.Duration {
	return time.Duration(s.JWTExpireHours) * time.Hour
}

// AuthRateWindow is the fixed window used by the auth rate limiter.
func (s Settings) AuthRateWindow() time.Duration {
	return time.Duration(s.AuthRateWindowSec) * time.Second
}

// Production reports whether the service runs with production defaults.
func (s Settings) Production() bool {
	return strings.EqualFold(s.Environment, "production") || s.GinMode == "release"
}

func validate(cfg Settings) error {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if cfg.Port == "" {
		return errors.New("config: SERVER_PORT is required")
	}
	switch cfg.DBDriver {
	case "mysql", "postgres":
		if cfg.DatabaseURL == "" && cfg.DBDatabase == "" {
			return fmt.Errorf("config: DB_DATABASE or DATABASE_URL is required for %s", cfg.DBDriver)
		}
	case "memory":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.StorageDriver {
	case "disk":
		if strings.TrimSpace(cfg.UploadPath) == "" {
			return errors.New("config: UPLOAD_PATH is required for disk storage")
		}
	case "minio":
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return errors.New("config: MINIO_ENDPOINT and MINIO_BUCKET are required for minio storage")
		}
	default:
		return fmt.Errorf("config: unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return errors.New("config: ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if cfg.JWTExpireHours <= 0 {
		return errors.New("config: JWT_EXPIRE_HOURS must be positive")
	}
	if cfg.RedisAddr != "" && (cfg.AuthRateLimit <= 0 || cfg.AuthRateWindowSec <= 0) {
		return errors.New("config: AUTH_RATE_LIMIT and AUTH_RATE_WINDOW_SECONDS must be positive")
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
