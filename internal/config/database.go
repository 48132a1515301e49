package config

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"eld_trip_planner/internal/store"
)

// DSN builds the libpq connection string.
func (s Settings) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		s.DBHost, s.DBUser, s.DBPassword, s.DBName, s.DBPort, s.DBSSLMode, s.DBTimezone,
	)
}

// InitDB opens postgres through the lib/pq database/sql driver and migrates the schema.
func InitDB(ctx context.Context, s Settings, log gormlogger.Interface) (*store.Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        s.DSN(),
	}), &gorm.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	st := store.New(db)
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
