package config

import (
	"Conspiracy/models/postgres"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectGORM returns a GORM DB instance connected to PostgreSQL
func ConnectGORM(cfg *Config) (*gorm.DB, error) {
	db, err := OpenGORM(cfg.Postgres.DSN(), cfg.Postgres.Verbose)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"host":     cfg.Postgres.Host,
		"database": cfg.Postgres.Database,
	}).Info("Successfully connected to PostgreSQL with GORM")
	return db, nil
}

// OpenGORM opens dsn through lib/pq and wraps it with GORM
func OpenGORM(dsn string, verbose bool) (*gorm.DB, error) {
	// NOTE: See https://github.com/go-gorm/gorm/issues/5409
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to PostgreSQL")
		return nil, err
	}

	gormConfig := &gorm.Config{}
	if verbose {
		gormConfig.Logger = logger.New(
			logrus.StandardLogger(),
			logger.Config{
				SlowThreshold:             time.Second, // Slow SQL threshold
				LogLevel:                  logger.Info,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to PostgreSQL with GORM")
		return nil, err
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		logrus.WithError(err).Error("Error pinging PostgreSQL")
		return nil, err
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// MigrateDatabase migrates the GORM models to the PostgreSQL database
func MigrateDatabase(db *gorm.DB) error {
	// NOTE: postgres driver v1.4.0, see https://github.com/pilinux/gorest/issues/167#issuecomment-1947114560
	err := db.AutoMigrate(
		postgres.Room{},
		postgres.Player{},
		postgres.RoomPlayer{})

	if err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	logrus.Info("PostgreSQL database migrated successfully")

	return nil
}
