package db

import (
	"database/sql"
	"fmt"
	"log"

	"DriveFM/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createSongsTable(); err != nil {
		return err
	}
	if err := createSettingsTable(); err != nil {
		return err
	}
	log.Println("Database initialization completed.")
	return nil
}

func createSongsTable() error {
	// id is the drive file id; title and album carry secondary indexes to
	// back substring search and album-sorted listing.
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id VARCHAR(128) PRIMARY KEY,
		title VARCHAR(512) NOT NULL,
		artist VARCHAR(512),
		album VARCHAR(512),
		genre VARCHAR(255),
		year VARCHAR(16),
		last_edited_utc BIGINT NOT NULL,
		audio_path VARCHAR(767) NOT NULL,
		cover_path VARCHAR(767),
		cover_mime VARCHAR(128),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_songs_title (title(191)),
		INDEX idx_songs_album (album(191))
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	log.Println("Songs table initialized successfully (or already exists).")
	return nil
}

func createSettingsTable() error {
	// Named persisted slots, e.g. lastUpdated.
	query := `
	CREATE TABLE IF NOT EXISTS settings (
		name VARCHAR(64) PRIMARY KEY,
		value TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	log.Println("Settings table initialized successfully (or already exists).")
	return nil
}
