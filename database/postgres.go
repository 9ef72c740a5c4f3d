package database

import (
	"context"
	"fmt"
	"time"

	"dashboard-service/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectAttempts = 10

// Settings are the connection parameters shared by every pool.
type Settings struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

func (s Settings) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		s.Host, s.User, s.Password, s.Name, s.Port, s.SSLMode, s.TimeZone,
	)
}

type poolOptions struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	logLevel    gormlogger.LogLevel
}

// Open connects the pool used by request handlers and migrates the schema.
func Open(ctx context.Context, logger *zap.Logger, s Settings) (*gorm.DB, error) {
	db, err := connect(ctx, logger, s, poolOptions{
		maxOpen:     25,
		maxIdle:     5,
		maxLifetime: 5 * time.Minute,
		logLevel:    gormlogger.Warn,
	})
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(&models.CatalogItem{}, &models.Order{}, &models.OrderItem{}); err != nil {
		_ = Close(db)
		return nil, fmt.Errorf("AutoMigrate failed: %w", err)
	}
	return db, nil
}

// OpenSeeding connects a single-connection pool reserved for one seeding
// session. Statement logging is off since failures are logged by the seeder
// with the full statement.
func OpenSeeding(ctx context.Context, logger *zap.Logger, s Settings) (*gorm.DB, error) {
	return connect(ctx, logger, s, poolOptions{
		maxOpen:  1,
		maxIdle:  1,
		logLevel: gormlogger.Silent,
	})
}

func connect(ctx context.Context, logger *zap.Logger, s Settings, opts poolOptions) (*gorm.DB, error) {
	var lastErr error
	for i := 0; i < connectAttempts; i++ {
		db, err := gorm.Open(postgres.Open(s.DSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(opts.logLevel),
		})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr != nil {
				return nil, fmt.Errorf("failed to get database instance: %w", poolErr)
			}
			sqlDB.SetMaxOpenConns(opts.maxOpen)
			sqlDB.SetMaxIdleConns(opts.maxIdle)
			sqlDB.SetConnMaxLifetime(opts.maxLifetime)

			logger.Info("Connected to PostgreSQL", zap.String("host", s.Host), zap.Int("max_open_conns", opts.maxOpen))
			return db, nil
		}

		lastErr = err
		logger.Warn("DB connection failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 2 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", lastErr)
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
