// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "townsquare-dev-secret-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"APP_ENV"`
	JWTSecret             string        `mapstructure:"JWT_SECRET"`
	JWTTTL                time.Duration `mapstructure:"JWT_TTL"`
	DBDriver              string        `mapstructure:"DB_DRIVER"`
	DBHost                string        `mapstructure:"DB_HOST"`
	DBPort                string        `mapstructure:"DB_PORT"`
	DBUser                string        `mapstructure:"DB_USER"`
	DBPassword            string        `mapstructure:"DB_PASSWORD"`
	DBName                string        `mapstructure:"DB_NAME"`
	DBSSLMode             string        `mapstructure:"DB_SSLMODE"`
	SQLitePath            string        `mapstructure:"SQLITE_PATH"`
	DBMaxOpenConns        int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns        int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMins int           `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	AllowedOrigins        string        `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags          string        `mapstructure:"FEATURE_FLAGS"`
	UploadDir             string        `mapstructure:"UPLOAD_DIR"`
	ImageMaxUploadSizeMB  int           `mapstructure:"IMAGE_MAX_UPLOAD_MB"`
	ImageMaxDimension     int           `mapstructure:"IMAGE_MAX_DIMENSION"`
	ImageFormat           string        `mapstructure:"IMAGE_FORMAT"`
	TracingEnabled        bool          `mapstructure:"TRACING_ENABLED"`
	TracingExporter       string        `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint          string        `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio   float64       `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	setDefaults(v)

	// The base file is optional; env vars and defaults are enough to boot.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env != "" && env != "development" && env != "test" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8375")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "townsquare")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "townsquare.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	v.SetDefault("FEATURE_FLAGS", "image_uploads=on,feed_events=on")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("IMAGE_MAX_UPLOAD_MB", 10)
	v.SetDefault("IMAGE_MAX_DIMENSION", 2048)
	v.SetDefault("IMAGE_FORMAT", "jpeg")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be a positive duration")
	}

	switch strings.ToLower(c.DBDriver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected postgres or sqlite)", c.DBDriver)
	}

	switch strings.ToLower(c.ImageFormat) {
	case "", "jpeg", "webp":
	default:
		return fmt.Errorf("unsupported IMAGE_FORMAT %q (expected jpeg or webp)", c.ImageFormat)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if strings.EqualFold(c.DBDriver, "postgres") && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
