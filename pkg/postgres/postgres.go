package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"gathering-app/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	// Read migration files and execute them
	// This is a simplified version - you might want to use a proper migration tool
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			telegram_id BIGINT,
			telegram_username VARCHAR(100),
			display_name VARCHAR(255) NOT NULL,
			guest BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS gatherings (
			id UUID PRIMARY KEY,
			title VARCHAR(100) NOT NULL,
			description TEXT,
			creator_id UUID REFERENCES profiles(id),
			max_slots INTEGER NOT NULL CHECK (max_slots >= 2),
			gathering_date TIMESTAMPTZ NOT NULL,
			booking_deadline TIMESTAMPTZ,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS slots (
			id UUID PRIMARY KEY,
			gathering_id UUID NOT NULL REFERENCES gatherings(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES profiles(id),
			slot_number INTEGER NOT NULL,
			booked_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT slots_gathering_number_key UNIQUE (gathering_id, slot_number),
			CONSTRAINT slots_gathering_user_key UNIQUE (gathering_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS waitlist (
			id UUID PRIMARY KEY,
			gathering_id UUID NOT NULL REFERENCES gatherings(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES profiles(id),
			position INTEGER NOT NULL,
			joined_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT waitlist_gathering_user_key UNIQUE (gathering_id, user_id),
			CONSTRAINT waitlist_gathering_position_key UNIQUE (gathering_id, position)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_gatherings_status ON gatherings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_gatherings_date ON gatherings(gathering_date)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_gathering_id ON slots(gathering_id)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_user_id ON slots(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_waitlist_gathering_id ON waitlist(gathering_id)`,
		`CREATE INDEX IF NOT EXISTS idx_waitlist_position ON waitlist(gathering_id, position)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
