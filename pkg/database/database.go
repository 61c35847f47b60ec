package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vidshare_backend/pkg/config"
)

var DB *gorm.DB

// InitDB connects to Postgres and sizes the pool from cfg. Connection
// failures are fatal.
func InitDB(cfg config.DatabaseConfig) {
	var err error

	pgConfig := postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // avoids prepared statement clashes behind pgbouncer
	}

	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(LogLevel(cfg.LogLevel)),
		PrepareStmt: false,
	}

	DB, err = gorm.Open(postgres.New(pgConfig), gormConfig)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	ConfigurePool(sqlDB, cfg)

	log.Printf("Database connected (pool: %d idle / %d open)", cfg.MaxIdleConns, cfg.MaxOpenConns)
}

func ConfigurePool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// LogLevel maps DB_LOG_LEVEL to a gorm level; unknown values mean errors only
func LogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	}
	return logger.Error
}

func GetDB() *gorm.DB {
	return DB
}

// MigrateDatabase creates missing tables and migrates existing ones
func MigrateDatabase(models ...interface{}) error {
	created := 0
	for _, model := range models {
		if !DB.Migrator().HasTable(model) {
			if err := DB.Migrator().CreateTable(model); err != nil {
				return fmt.Errorf("create table for %T: %w", model, err)
			}
			created++
			continue
		}
		if err := DB.Migrator().AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	log.Printf("Migrated %d models (%d new tables)", len(models), created)
	return nil
}
