// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	NotifyModeSync  = "sync"
	NotifyModeAsync = "async"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	MercadoPago MercadoPagoConfig
	Webhook     WebhookConfig
	Telegram    TelegramConfig
	WhatsApp    WhatsAppConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Notify      NotifyConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type MercadoPagoConfig struct {
	BaseURL         string
	AccessToken     string
	NotificationURL string
	Timeout         time.Duration
}

type WebhookConfig struct {
	// Secret is optional; without it signed deliveries are accepted in degraded-trust mode.
	Secret string
}

type TelegramConfig struct {
	BaseURL  string
	BotToken string
	ChatID   string
}

type WhatsAppTarget struct {
	Phone  string
	APIKey string
}

type WhatsAppConfig struct {
	BaseURL string
	Targets []WhatsAppTarget
}

type KafkaConfig struct {
	Brokers     []string
	NotifyTopic string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
	AdminRole string
}

type NotifyConfig struct {
	Mode        string
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// Load reads configuration from the environment, after an optional .env file.
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("ENVIRONMENT", "development"),
			AllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "pix_pocket"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		MercadoPago: MercadoPagoConfig{
			BaseURL:         getEnv("MERCADO_PAGO_BASE_URL", "https://api.mercadopago.com"),
			AccessToken:     getEnv("MERCADO_PAGO_ACCESS_TOKEN", ""),
			NotificationURL: getEnv("MERCADO_PAGO_NOTIFICATION_URL", ""),
			Timeout:         getEnvDuration("MERCADO_PAGO_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("MERCADO_PAGO_WEBHOOK_SECRET", ""),
		},
		Telegram: TelegramConfig{
			BaseURL:  getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", "@Panambipokerfichas"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL: getEnv("CALLMEBOT_BASE_URL", "https://api.callmebot.com"),
		},
		Kafka: KafkaConfig{
			Brokers:     parseCSVEnv("KAFKA_BROKERS", ""),
			NotifyTopic: getEnv("KAFKA_NOTIFY_TOPIC", "pix.operations.notifications"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
			Audience:  getEnv("JWT_AUDIENCE", ""),
			AdminRole: getEnv("JWT_ADMIN_ROLE", "admin"),
		},
		Notify: NotifyConfig{
			Mode:        strings.ToLower(getEnv("NOTIFY_MODE", NotifyModeSync)),
			MaxAttempts: getEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvDuration("NOTIFY_BASE_DELAY", time.Second),
			Timeout:     getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			Limit:  getEnvInt("RATE_LIMIT_REQUESTS", 60),
			Window: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	targets, err := parseWhatsAppTargets(getEnv("WHATSAPP_TARGETS", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to parse WHATSAPP_TARGETS: %w", err)
	}
	cfg.WhatsApp.Targets = targets

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Webhook.Secret == "" {
		logger.Warn("MERCADO_PAGO_WEBHOOK_SECRET not set, signed webhooks will be accepted without verification")
	}

	logger.Info("notification targets loaded",
		zap.Bool("telegram", cfg.Telegram.BotToken != ""),
		zap.Int("whatsapp", len(cfg.WhatsApp.Targets)),
		zap.Bool("kafka", len(cfg.Kafka.Brokers) > 0))

	return cfg, nil
}

func (c *Config) validate() error {
	if c.MercadoPago.AccessToken == "" {
		return fmt.Errorf("MERCADO_PAGO_ACCESS_TOKEN is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Notify.Mode != NotifyModeSync && c.Notify.Mode != NotifyModeAsync {
		return fmt.Errorf("NOTIFY_MODE must be %q or %q, got %q", NotifyModeSync, NotifyModeAsync, c.Notify.Mode)
	}
	if c.Notify.MaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the DB_* parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
		d.SSLMode,
	)
}

// parseWhatsAppTargets parses "phone:apikey,phone:apikey".
func parseWhatsAppTargets(raw string) ([]WhatsAppTarget, error) {
	var targets []WhatsAppTarget
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		phone, apiKey, ok := strings.Cut(entry, ":")
		phone, apiKey = strings.TrimSpace(phone), strings.TrimSpace(apiKey)
		if !ok || phone == "" || apiKey == "" {
			return nil, fmt.Errorf("invalid target %q, expected phone:apikey", entry)
		}
		targets = append(targets, WhatsAppTarget{Phone: phone, APIKey: apiKey})
	}
	return targets, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseCSVEnv(key, fallback string) []string {
	val := getEnv(key, fallback)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
