package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingAdminConfig is returned when the notification subsystem has no
// admin recipient to deliver to. The process must not start without one.
var ErrMissingAdminConfig = errors.New("admin recipient is not configured")

type Config struct {
	Addr      string `envconfig:"ADDR" default:":8080"`
	DBDSN     string `envconfig:"DB_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
	JWTSecret string `envconfig:"JWT_SECRET"`
	AppURL    string `envconfig:"APP_URL" default:"http://localhost:3000"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"INFO"`

	AdminUserID string `envconfig:"ADMIN_USER_ID"`
	AdminEmail  string `envconfig:"ADMIN_EMAIL"`

	SMTPHost     string        `envconfig:"SMTP_HOST"`
	SMTPPort     int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword string        `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string        `envconfig:"SMTP_FROM"`
	EmailTimeout time.Duration `envconfig:"EMAIL_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if strings.TrimSpace(cfg.AdminUserID) == "" {
		return nil, fmt.Errorf("%w: ADMIN_USER_ID is required", ErrMissingAdminConfig)
	}
	if strings.TrimSpace(cfg.AdminEmail) == "" {
		return nil, fmt.Errorf("%w: ADMIN_EMAIL is required", ErrMissingAdminConfig)
	}

	return &cfg, nil
}

func (c *Config) UsesDatabase() bool { return c.DBDSN != "" }

func (c *Config) UsesRedis() bool { return c.RedisAddr != "" }

func (c *Config) UsesSMTP() bool { return c.SMTPHost != "" }
