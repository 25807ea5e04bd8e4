package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const envPrefix = "GATEWAY_"

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Stripe    StripeConfig    `koanf:"stripe"`
	Payment   PaymentConfig   `koanf:"payment"`
	Events    EventsConfig    `koanf:"events"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logger    LoggerConfig    `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
	// Zero disables the gRPC health endpoint.
	GRPCHealthPort int `koanf:"grpc_health_port"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig is optional. Without an address the customer lock is
// in-process and carts are not cleared.
type RedisConfig struct {
	Addr      string        `koanf:"addr"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db"`
	LockTTL   time.Duration `koanf:"lock_ttl" validate:"required"`
	CartKey   string        `koanf:"cart_key" validate:"required"`
	LockRetry time.Duration `koanf:"lock_retry" validate:"required"`
}

type StripeConfig struct {
	Timeout time.Duration `koanf:"timeout" validate:"required"`
}

type KeyPairConfig struct {
	SecretKey      string `koanf:"secret_key"`
	PublishableKey string `koanf:"publishable_key"`
}

type PaymentConfig struct {
	Mode               string        `koanf:"mode" validate:"required,oneof=sandbox live"`
	Sandbox            KeyPairConfig `koanf:"sandbox"`
	Live               KeyPairConfig `koanf:"live"`
	AuthorizeOnly      bool          `koanf:"authorize_only"`
	SettlementCurrency string        `koanf:"settlement_currency" validate:"required,len=3"`
	AcceptedBrands     []string      `koanf:"accepted_brands" validate:"required,min=1"`
	CustomerMode       bool          `koanf:"customer_mode"`
	GuestCheckout      bool          `koanf:"guest_checkout"`
	StoreName          string        `koanf:"store_name"`
	ReturnURLTemplate  string        `koanf:"return_url_template" validate:"required"`
	CaptureStatuses    []string      `koanf:"capture_statuses"`
	// Empty charges every customer-mode order immediately.
	HoldAbove string `koanf:"hold_above"`
}

type EventsConfig struct {
	Transport   string `koanf:"transport" validate:"required,oneof=gochannel amqp"`
	AMQPURI     string `koanf:"amqp_uri"`
	Topic       string `koanf:"topic" validate:"required"`
	PoisonTopic string `koanf:"poison_topic" validate:"required"`
	// Non-empty starts an HTTP subscriber that accepts status changes pushed by the shop platform.
	// Bind it to loopback unless WebhookSecret is set.
	HTTPListenAddr string `koanf:"http_listen_addr"`
	// Required in the X-Webhook-Secret header when non-empty.
	WebhookSecret string `koanf:"webhook_secret"`
}

// KafkaConfig is optional. Without brokers payment events are only logged.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type TelemetryConfig struct {
	ServiceName  string `koanf:"service_name" validate:"required"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                 "development",
		"server.port":                 "8080",
		"server.read_timeout":         "10s",
		"server.write_timeout":        "30s",
		"server.idle_timeout":         "60s",
		"server.request_timeout":      "25s",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"redis.lock_ttl":              "60s",
		"redis.lock_retry":            "50ms",
		"redis.cart_key":              "cart:%s",
		"stripe.timeout":              "20s",
		"payment.mode":                "sandbox",
		"payment.settlement_currency": "USD",
		"payment.accepted_brands":     []string{"visa", "mastercard", "amex", "discover", "jcb", "dinersclub"},
		"payment.capture_statuses":    []string{"processing"},
		"events.transport":            "gochannel",
		"events.topic":                "order.status_changed",
		"events.poison_topic":         "order.status_changed.poison",
		"kafka.topic":                 "payment-events",
		"telemetry.service_name":      "ficmart-checkout",
		"logger.level":                "info",
		"logger.format":               "json",
	}
}

// LoadConfig layers defaults, an optional YAML file named by
// GATEWAY_CONFIG_FILE, and GATEWAY_ environment variables, in that order.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, err
		}
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(key, envPrefix)),
			"__",
			".",
		)
		if isListKey(key) {
			return key, splitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if err := mainConfig.checkLockTTL(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// customerLockCalls is the most processor calls made while the per-user
// customer lock is held: retrieve the customer, then replace its source.
const customerLockCalls = 2

// checkLockTTL rejects a customer lock that could expire while its holder is
// still waiting on the processor.
func (c *Config) checkLockTTL() error {
	worst := customerLockCalls * c.Stripe.Timeout
	if c.Redis.LockTTL <= worst {
		return fmt.Errorf("redis.lock_ttl %s must exceed %d x stripe.timeout (%s)",
			c.Redis.LockTTL, customerLockCalls, worst)
	}
	return nil
}

var listKeys = map[string]bool{
	"payment.accepted_brands":  true,
	"payment.capture_statuses": true,
	"kafka.brokers":            true,
}

func isListKey(key string) bool {
	return listKeys[key]
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
