package repository

import (
	"database/sql"
	"fmt"

	"DriveFM/db"
)

// SettingLastUpdated is the persisted slot holding the last successful
// sync timestamp, shown in the UI and written once per completed batch.
const SettingLastUpdated = "lastUpdated"

// SettingsRepository provides the named persisted config slots.
type SettingsRepository interface {
	Get(name string) (string, error)
	Set(name, value string) error
}

// mysqlSettingsRepository implements SettingsRepository for MySQL.
type mysqlSettingsRepository struct {
	DB *sql.DB
}

// NewMySQLSettingsRepository creates a new instance of mysqlSettingsRepository.
func NewMySQLSettingsRepository() SettingsRepository {
	return &mysqlSettingsRepository{DB: db.DB}
}

// Get returns the value of a slot, or "" if the slot was never written.
func (r *mysqlSettingsRepository) Get(name string) (string, error) {
	var value sql.NullString
	err := r.DB.QueryRow(`SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to read setting %s: %w", name, err)
	}
	return value.String, nil
}

// Set writes a slot, creating it on first use.
func (r *mysqlSettingsRepository) Set(name, value string) error {
	query := `INSERT INTO settings (name, value) VALUES (?, ?)
	           ON DUPLICATE KEY UPDATE value = VALUES(value)`
	if _, err := r.DB.Exec(query, name, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", name, err)
	}
	return nil
}
