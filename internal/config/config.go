package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultChunkSize      = 1024 * 1024     // 1 MiB streaming chunks
	DefaultMaxUploadBytes = 5 * 1024 * 1024 // 5 MiB document photo cap
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	UploadsDir     string `mapstructure:"UPLOADS_DIR"`
	FileChunkSize  int    `mapstructure:"FILE_CHUNK_SIZE"`
	MaxUploadBytes int64  `mapstructure:"MAX_UPLOAD_BYTES"`

	SMTPHost      string `mapstructure:"SMTP_HOST"`
	SMTPPort      int    `mapstructure:"SMTP_PORT"`
	SMTPUsername  string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword  string `mapstructure:"SMTP_PASSWORD"`
	SMTPFromEmail string `mapstructure:"SMTP_FROM_EMAIL"`
	SMTPFromName  string `mapstructure:"SMTP_FROM_NAME"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("UPLOADS_DIR", "data/uploads")
	v.SetDefault("FILE_CHUNK_SIZE", DefaultChunkSize)
	v.SetDefault("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	v.SetDefault("SMTP_PORT", 587)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"CORS_ORIGINS", "UPLOADS_DIR", "FILE_CHUNK_SIZE", "MAX_UPLOAD_BYTES",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD",
		"SMTP_FROM_EMAIL", "SMTP_FROM_NAME",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SMTPConfigured reports whether every SMTP setting needed to build the
// email notifier is present. Anything less falls back to the no-op sender.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPPort > 0 && c.SMTPUsername != "" &&
		c.SMTPPassword != "" && c.SMTPFromEmail != "" && c.SMTPFromName != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.FileChunkSize <= 0 {
		return fmt.Errorf("FILE_CHUNK_SIZE must be positive, got %d", c.FileChunkSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.UploadsDir == "" {
		return fmt.Errorf("UPLOADS_DIR is required")
	}
	return nil
}
