package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase connects to Postgres and sizes the connection pool.
func OpenDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnLifetime())

	slog.Info("database connected", "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

// Migrate creates or updates the document and conversation tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&documentRow{}, &conversationRow{}, &messageRow{}, &readCursorRow{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
