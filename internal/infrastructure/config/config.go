package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is read once at process start and passed by reference into the
// components that need it; nothing consults the environment afterwards.
type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// JWTSecret must be supplied via the environment, never hard-coded.
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,  default=24h"`
	// ResetTokenTTL bounds password reset tokens; deliberately shorter than
	// the session TTL.
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL, default=1h"`

	// Rate-limit thresholds, distinct per endpoint class.
	AuthRateMax     int           `env:"AUTH_RATE_MAX,     default=10"`
	AuthRateWindow  time.Duration `env:"AUTH_RATE_WINDOW,  default=1m"`
	ResetRateMax    int           `env:"RESET_RATE_MAX,    default=3"`
	ResetRateWindow time.Duration `env:"RESET_RATE_WINDOW, default=5m"`

	// PlatformFeeRate is the platform's cut applied by fee transactions.
	PlatformFeeRate float64 `env:"PLATFORM_FEE_RATE, default=0.05"`

	PaymentGatewayURL     string        `env:"PAYMENT_GATEWAY_URL,     default=http://localhost:9090"`
	PaymentGatewayTimeout time.Duration `env:"PAYMENT_GATEWAY_TIMEOUT, default=10s"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=element"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD, default="`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
