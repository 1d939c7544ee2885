package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) DSN(config DialectConfig) string {
	return config.Path
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return err
	}

	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) UpsertCheckpointQuery() string {
	return `
		INSERT INTO checkpoints (reader_id, book_id, page_number, answers, quiz_state, audio_position_sec, percent_complete)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(reader_id, book_id) DO UPDATE SET
			page_number = excluded.page_number,
			answers = excluded.answers,
			quiz_state = excluded.quiz_state,
			audio_position_sec = excluded.audio_position_sec,
			percent_complete = MAX(checkpoints.percent_complete, excluded.percent_complete),
			updated_at = CURRENT_TIMESTAMP
	`
}

func (d *SQLiteDialect) UpsertReaderSettingQuery() string {
	return `
		INSERT INTO reader_settings (reader_id, setting_key, setting_value)
		VALUES (?, ?, ?)
		ON CONFLICT(reader_id, setting_key) DO UPDATE SET
			setting_value = excluded.setting_value,
			updated_at = CURRENT_TIMESTAMP
	`
}

func (d *SQLiteDialect) InsertCompletedBookQuery() string {
	return "INSERT OR IGNORE INTO completed_books (reader_id, book_id) VALUES (?, ?)"
}
