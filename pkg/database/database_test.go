package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vidshare_backend/pkg/config"
)

func TestConfigurePool(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	ConfigurePool(sqlDB, config.DatabaseConfig{MaxOpenConns: 7, ConnMaxLifetime: time.Minute})
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)

	// zero values leave the driver defaults alone
	ConfigurePool(sqlDB, config.DatabaseConfig{})
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, LogLevel("INFO"))
	assert.Equal(t, logger.Silent, LogLevel("silent"))
	assert.Equal(t, logger.Error, LogLevel(""))
	assert.Equal(t, logger.Error, LogLevel("verbose"))
}

type widget struct {
	ID   uint
	Name string
}

type widgetV2 struct {
	ID    uint
	Name  string
	Color string
}

func (widgetV2) TableName() string { return "widgets" }

func TestMigrateDatabase(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	original := DB
	DB = db
	t.Cleanup(func() { DB = original })

	require.NoError(t, MigrateDatabase(&widget{}))
	assert.True(t, db.Migrator().HasTable("widgets"))

	require.NoError(t, MigrateDatabase(&widgetV2{}))
	assert.True(t, db.Migrator().HasColumn(&widgetV2{}, "color"))
}
