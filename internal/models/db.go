package models

import (
	"context"
	"fmt"
	"time"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection
func InitDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:    true,
		TranslateError: true,
	}

	if cfg.Env == config.EnvProduction {
		gormConfig.Logger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connection established", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
	return db, nil
}

// InitRedis initializes the Redis connection. It returns nil when Redis is
// disabled or unreachable; callers degrade to in-process behaviour.
func InitRedis(cfg *config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RedisEnabled {
		log.Info("redis disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis not reachable, continuing without it", zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("redis connection established", zap.String("addr", client.Options().Addr))
	return client
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Project{},
		&OTP{},
	); err != nil {
		return err
	}

	// At most one live code per mobile number.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_otps_live_mobile ON otps (mobile_number) WHERE deleted_at IS NULL`).Error
}
