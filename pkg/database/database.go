package database

import (
	"crawlstats/pkg/database/models"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection creates the connection pool for the given DSN.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	sqlDb, sqlErr := db.DB()
	if sqlErr != nil {
		return nil, fmt.Errorf("failed to get the sql connection: %v", sqlErr)
	}

	// Set the pool values.
	sqlDb.SetMaxOpenConns(100)
	sqlDb.SetMaxIdleConns(10)
	sqlDb.SetConnMaxLifetime(time.Hour)
	sqlDb.SetConnMaxIdleTime(time.Hour)

	// Test the connection.
	if err := sqlDb.Ping(); err != nil {
		sqlDb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// CreateEnums creates the enum for the streak classification.
func CreateEnums(db *gorm.DB) error {
	return db.Exec(`
		DO $$
		BEGIN
		    IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'streak_classification') THEN
		        CREATE TYPE streak_classification AS ENUM ('uniform', 'distinct', 'mixed', 'empty');
		    END IF;
		END $$;
	`).Error
}

// Migrate creates the enums and automigrates every model.
func Migrate(db *gorm.DB) error {
	if err := CreateEnums(db); err != nil {
		return fmt.Errorf("couldn't create the enums: %v", err)
	}

	err := db.AutoMigrate(
		&models.Server{},
		&models.Logfile{},
		&models.Player{},
		&models.Game{},
		&models.InvalidGame{},
		&models.Streak{},
		&models.StreakGame{},
	)
	if err != nil {
		return fmt.Errorf("couldn't run the auto migration: %v", err)
	}

	return nil
}
