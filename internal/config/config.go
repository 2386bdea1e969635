package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine
type Config struct {
	Server   ServerConfig   `mapstructure:",squash"`
	Database DatabaseConfig `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
	Gateway  GatewayConfig  `mapstructure:",squash"`
	Reminder ReminderConfig `mapstructure:",squash"`
	Notifier NotifierConfig `mapstructure:",squash"`
	Logging  LoggingConfig  `mapstructure:",squash"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"DATABASE_HOST"`
	Port     string `mapstructure:"DATABASE_PORT"`
	Name     string `mapstructure:"DATABASE_NAME"`
	User     string `mapstructure:"DATABASE_USER"`
	Password string `mapstructure:"DATABASE_PASSWORD"`
	SSLMode  string `mapstructure:"DATABASE_SSLMODE"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type GatewayConfig struct {
	BaseURL       string `mapstructure:"GATEWAY_BASE_URL"`
	KeyID         string `mapstructure:"GATEWAY_KEY_ID"`
	KeySecret     string `mapstructure:"GATEWAY_KEY_SECRET"`
	WebhookSecret string `mapstructure:"GATEWAY_WEBHOOK_SECRET"`
	Currency      string `mapstructure:"GATEWAY_CURRENCY"`
	Timeout       string `mapstructure:"GATEWAY_TIMEOUT"`
}

type ReminderConfig struct {
	Window          string `mapstructure:"REMINDER_WINDOW"`
	Cooldown        string `mapstructure:"REMINDER_COOLDOWN"`
	FinalAfterDays  int    `mapstructure:"REMINDER_FINAL_AFTER_DAYS"`
	SweepLockTTL    string `mapstructure:"REMINDER_SWEEP_LOCK_TTL"`
	EnrollmentURL   string `mapstructure:"ENROLLMENT_BASE_URL"`
	CollaboratorTTL string `mapstructure:"COLLABORATOR_TIMEOUT"`
}

type NotifierConfig struct {
	Endpoint string `mapstructure:"NOTIFIER_ENDPOINT"`
	Timeout  string `mapstructure:"NOTIFIER_TIMEOUT"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_NAME", "installment_engine")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GATEWAY_CURRENCY", "INR")
	viper.SetDefault("GATEWAY_TIMEOUT", "10s")
	viper.SetDefault("REMINDER_WINDOW", "72h")
	viper.SetDefault("REMINDER_COOLDOWN", "24h")
	viper.SetDefault("REMINDER_FINAL_AFTER_DAYS", 7)
	viper.SetDefault("REMINDER_SWEEP_LOCK_TTL", "30m")
	viper.SetDefault("COLLABORATOR_TIMEOUT", "10s")
	viper.SetDefault("NOTIFIER_TIMEOUT", "10s")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	viper.AutomaticEnv()

	// Optional .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("GATEWAY_WEBHOOK_SECRET is required")
	}

	if c.Reminder.FinalAfterDays <= 0 {
		return fmt.Errorf("REMINDER_FINAL_AFTER_DAYS must be greater than 0")
	}

	for name, value := range map[string]string{
		"GATEWAY_TIMEOUT":         c.Gateway.Timeout,
		"REMINDER_WINDOW":         c.Reminder.Window,
		"REMINDER_COOLDOWN":       c.Reminder.Cooldown,
		"REMINDER_SWEEP_LOCK_TTL": c.Reminder.SweepLockTTL,
		"COLLABORATOR_TIMEOUT":    c.Reminder.CollaboratorTTL,
		"NOTIFIER_TIMEOUT":        c.Notifier.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", name, err)
		}
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// DSN builds the Postgres connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// GetGatewayTimeout returns the gateway call timeout as duration
func (c *Config) GetGatewayTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Gateway.Timeout)
	return d
}

// GetReminderWindow returns the upcoming-due selection window as duration
func (c *Config) GetReminderWindow() time.Duration {
	d, _ := time.ParseDuration(c.Reminder.Window)
	return d
}

// GetReminderCooldown returns the per-installment reminder cooldown
func (c *Config) GetReminderCooldown() time.Duration {
	d, _ := time.ParseDuration(c.Reminder.Cooldown)
	return d
}

// GetSweepLockTTL returns the sweep self-exclusion lock TTL. This is also
// the sweep's execution budget: a sweep is cancelled before its lock can
// expire, so two sweeps never run concurrently.
func (c *Config) GetSweepLockTTL() time.Duration {
	d, _ := time.ParseDuration(c.Reminder.SweepLockTTL)
	return d
}

// GetCollaboratorTimeout returns the timeout for enrollment service calls
func (c *Config) GetCollaboratorTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Reminder.CollaboratorTTL)
	return d
}

// GetNotifierTimeout returns the notification dispatch timeout
func (c *Config) GetNotifierTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Notifier.Timeout)
	return d
}
