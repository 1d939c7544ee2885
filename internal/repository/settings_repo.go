package repository

import (
	"database/sql"

	"storynest/internal/database"
)

// SettingsRepository stores per-reader preferences (read-aloud, music loop)
type SettingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a setting value for a reader, or defaultValue if unset
func (r *SettingsRepository) Get(readerID int64, key, defaultValue string) (string, error) {
	var value string
	query := `SELECT setting_value FROM reader_settings WHERE reader_id = ? AND setting_key = ?`
	err := r.db.QueryRow(query, readerID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set updates or inserts a setting for a reader
func (r *SettingsRepository) Set(readerID int64, key, value string) error {
	_, err := r.db.Exec(r.db.Dialect.UpsertReaderSettingQuery(), readerID, key, value)
	return err
}

// GetAll returns every setting for a reader as a map
func (r *SettingsRepository) GetAll(readerID int64) (map[string]string, error) {
	query := `SELECT setting_key, setting_value FROM reader_settings WHERE reader_id = ?`

	rows, err := r.db.Query(query, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}

	return settings, rows.Err()
}
