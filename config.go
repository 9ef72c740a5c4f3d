package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"dashboard-service/database"
	"dashboard-service/seeding"

	"github.com/joho/godotenv"
)

const dbCredentialsSecret = "dashboard/DB_CREDENTIALS"

// Config holds all configuration for the dashboard service.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration

	Postgres database.Settings

	SeedEnabled          bool
	SeedDataDir          string
	SeedBatchSize        int
	SeedS3Bucket         string
	SeedS3Prefix         string
	SeedSNSTopicARN      string
	SeedProgressInterval time.Duration

	RedisURL        string
	CatalogCacheTTL time.Duration

	AWSRegion           string
	AWSEndpoint         string
	AWSUseSecrets       bool
	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string

	RateLimitPerMinute int
}

// NeedsAWS reports whether any configured feature talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.AWSUseSecrets || c.CloudWatchEnabled || c.SeedS3Bucket != "" || c.SeedSNSTopicARN != ""
}

// LoadConfig reads configuration from the environment, after loading an
// optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Port:     getEnv("PORT", "8090"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: os.Getenv("LOG_LEVEL"),
		Postgres: database.Settings{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		SeedDataDir:         getEnv("SEED_DATA_DIR", "./data/setup"),
		SeedS3Bucket:        os.Getenv("SEED_S3_BUCKET"),
		SeedS3Prefix:        getEnv("SEED_S3_PREFIX", "setup"),
		SeedSNSTopicARN:     os.Getenv("SEED_SNS_TOPIC_ARN"),
		RedisURL:            os.Getenv("REDIS_URL"),
		AWSRegion:           os.Getenv("AWS_REGION"),
		AWSEndpoint:         os.Getenv("AWS_ENDPOINT"),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Dashboard"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/dashboard/services"),
	}

	cfg.SeedEnabled = getEnvBool("SEED_ENABLED", true, &errs)
	cfg.SeedBatchSize = seeding.ClampBatchSize(getEnvInt("SEED_BATCH_SIZE", seeding.MaxRowsPerStatement, &errs))
	cfg.SeedProgressInterval = getEnvDuration("SEED_PROGRESS_INTERVAL", 15*time.Second, &errs)
	cfg.CatalogCacheTTL = getEnvDuration("CATALOG_CACHE_TTL", 10*time.Minute, &errs)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs)
	cfg.AWSUseSecrets = getEnvBool("AWS_USE_SECRETS", false, &errs)
	cfg.CloudWatchEnabled = getEnvBool("CLOUDWATCH_ENABLED", false, &errs)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 600, &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SecretReader decodes a JSON secret.
type SecretReader interface {
	GetSecretJSON(ctx context.Context, name string, v any) error
}

// ApplySecrets overrides database credentials with the values stored in
// Secrets Manager. Empty secret fields keep the environment value.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretReader) error {
	var m map[string]string
	if err := sm.GetSecretJSON(ctx, dbCredentialsSecret, &m); err != nil {
		return err
	}
	override := func(dst *string, key string) {
		if v := m[key]; v != "" {
			*dst = v
		}
	}
	override(&c.Postgres.User, "POSTGRES_USER")
	override(&c.Postgres.Password, "POSTGRES_PASSWORD")
	override(&c.Postgres.Name, "POSTGRES_DB")
	override(&c.Postgres.Host, "POSTGRES_HOST")
	override(&c.Postgres.Port, "POSTGRES_PORT")
	return nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	p := c.Postgres
	if p.User == "" || p.Password == "" || p.Name == "" || p.Host == "" {
		return fmt.Errorf("database config incomplete")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, val))
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, val))
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, val))
		return fallback
	}
	return d
}
