// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings shared by the api and worker binaries.
type Config struct {
	Port     string
	RunLocal bool
	LogLevel string

	IdempotencyTTL         time.Duration
	WaitTimeout            time.Duration
	OperationTimeout       time.Duration
	RejectInFlightMismatch bool

	PaymentDelay time.Duration

	ChargesTable     string
	ChargeEventsURL  string
	MetricsNamespace string
	AWSRegion        string
}

// Load reads .env (if present) and the process environment. Real environment
// variables win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("RUN_LOCAL", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("IDEMPOTENCY_TTL_MS", 3600000)
	v.SetDefault("IDEMPOTENCY_WAIT_TIMEOUT_MS", 30000)
	v.SetDefault("IDEMPOTENCY_OPERATION_TIMEOUT_MS", 30000)
	v.SetDefault("IDEMPOTENCY_REJECT_INFLIGHT_MISMATCH", false)
	v.SetDefault("PAYMENT_DELAY_MS", 2000)
	v.SetDefault("CHARGES_TABLE", "")
	v.SetDefault("CHARGE_EVENTS_QUEUE_URL", "")
	v.SetDefault("METRICS_NAMESPACE", "IdempotentPayments")
	v.SetDefault("AWS_REGION", "us-east-1")
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                   v.GetString("PORT"),
		RunLocal:               v.GetBool("RUN_LOCAL"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		IdempotencyTTL:         millis(v, "IDEMPOTENCY_TTL_MS"),
		WaitTimeout:            millis(v, "IDEMPOTENCY_WAIT_TIMEOUT_MS"),
		OperationTimeout:       millis(v, "IDEMPOTENCY_OPERATION_TIMEOUT_MS"),
		RejectInFlightMismatch: v.GetBool("IDEMPOTENCY_REJECT_INFLIGHT_MISMATCH"),
		PaymentDelay:           millis(v, "PAYMENT_DELAY_MS"),
		ChargesTable:           v.GetString("CHARGES_TABLE"),
		ChargeEventsURL:        v.GetString("CHARGE_EVENTS_QUEUE_URL"),
		MetricsNamespace:       v.GetString("METRICS_NAMESPACE"),
		AWSRegion:              v.GetString("AWS_REGION"),
	}

	if cfg.IdempotencyTTL <= 0 {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL_MS must be positive, got %d", v.GetInt64("IDEMPOTENCY_TTL_MS"))
	}
	if cfg.WaitTimeout < 0 || cfg.OperationTimeout < 0 || cfg.PaymentDelay < 0 {
		return nil, errors.New("timeouts and delays must not be negative")
	}
	return cfg, nil
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt64(key)) * time.Millisecond
}

// Addr is the listen address for the local HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
