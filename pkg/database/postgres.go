package database

import (
	"fmt"
	"time"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/logger"
	"go-inventory-pos/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectDB opens the Postgres pool described by cfg.
func ConnectDB(cfg config.DatabaseConfig, logLevel string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // transaction-mode poolers reject implicit prepared statements
	}), &gorm.Config{
		Logger:         logger.NewGormLogger(log, logger.GormLevel(logLevel), time.Second),
		PrepareStmt:    false,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Info("database connection established", zap.String("host", cfg.Host), zap.String("dbname", cfg.DBName))
	return db, nil
}

// Migrate creates or updates the tables of every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Branch{},
		&model.Category{},
		&model.Product{},
		&model.Counterparty{},
		&model.User{},
		&model.StockEntry{},
		&model.Document{},
		&model.DocumentLine{},
		&model.CashMovement{},
	)
}
