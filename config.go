package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            int           `mapstructure:"PORT"`
	MongoURI        string        `mapstructure:"MONGO_URI"`
	MongoDatabase   string        `mapstructure:"MONGO_DATABASE"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTTTL          time.Duration `mapstructure:"JWT_TTL"`
	BcryptCost      int           `mapstructure:"BCRYPT_COST"`
	AdminEmail      string        `mapstructure:"ADMIN_EMAIL"`
	AdminPassword   string        `mapstructure:"ADMIN_PASSWORD"`
	AuthEnforce     bool          `mapstructure:"AUTH_ENFORCE"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	TrustedProxies  []string      `mapstructure:"TRUSTED_PROXIES"`
	MaxBodyBytes    int64         `mapstructure:"MAX_BODY_BYTES"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogEncoding     string        `mapstructure:"LOG_ENCODING"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	NATSURL string `mapstructure:"NATS_URL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPSender   string `mapstructure:"SMTP_SENDER"`
}

// defaultJWTSecret only suits open mode; Validate refuses it under AUTH_ENFORCE.
const defaultJWTSecret = "change-me"

// LoadConfig reads config.env from the working directory (or the file in
// CONFIG_FILE) and lets environment variables override it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()
	setDefaults(v)

	// Hosting platforms export the connection string under other names.
	if err := v.BindEnv("MONGO_URI", "MONGO_URI", "MONGO_PUBLIC_URL", "MONGO_URL"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "sareestore")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("ADMIN_EMAIL", "admin@admin.com")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("AUTH_ENFORCE", false)
	v.SetDefault("CORS_ORIGINS", []string{"*"})
	v.SetDefault("TRUSTED_PROXIES", []string{})
	v.SetDefault("MAX_BODY_BYTES", 50<<20)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("NATS_URL", "")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_SENDER", "")
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0:
		return fmt.Errorf("invalid PORT %d", c.Port)
	case c.MongoURI == "":
		return errors.New("MONGO_URI is required")
	case c.MongoDatabase == "":
		return errors.New("MONGO_DATABASE is required")
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case c.AuthEnforce && c.JWTSecret == defaultJWTSecret:
		return errors.New("JWT_SECRET must be changed from the default when AUTH_ENFORCE is on")
	case c.SMTPHost != "" && c.SMTPSender == "":
		return errors.New("SMTP_SENDER is required when SMTP_HOST is set")
	}
	return nil
}
