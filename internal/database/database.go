package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marchelocal/server/internal/config"
	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/models"
)

type DB struct {
	*gorm.DB
}

func Connect(cfg *config.Config) (*DB, error) {
	log := logger.GetLogger("database")

	logLevel := gormlogger.Silent
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	// Register metrics plugin for Prometheus
	if err := db.Use(&MetricsPlugin{}); err != nil {
		log.Warnw("Failed to register metrics plugin", "error", err)
	} else {
		log.Info("Database metrics plugin registered")
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		log.Info("Database connection pool configured")
	}

	return &DB{db}, nil
}

// Models lists every table the API owns, in dependency order
func Models() []interface{} {
	return []interface{}{
		// Users
		&models.User{},

		// Markets
		&models.Market{},
		&models.Opening{},

		// Vendors
		&models.Vendor{},
		&models.MarketVendor{},
		&models.BankDetails{},

		// Catalog
		&models.Category{},
		&models.Product{},
		&models.MarketProduct{},

		// Cache
		&models.GeocodeCache{},
	}
}

// Migrate runs AutoMigrate for all models
func Migrate(db *DB) error {
	return db.AutoMigrate(Models()...)
}
