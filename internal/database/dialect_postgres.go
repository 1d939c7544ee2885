package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	// PostgreSQL uses $1, $2, etc. instead of ?
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) SupportsLastInsertId() bool {
	// PostgreSQL doesn't support LastInsertId(), needs RETURNING clause
	return false
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	// Configure connection pool for PostgreSQL
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// PostgreSQL has foreign keys enabled by default, no pragma needed
	return nil
}

func (d *PostgresDialect) MigrationsSubdir() string {
	return "postgres"
}

func (d *PostgresDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *PostgresDialect) UpsertCheckpointQuery() string {
	return `
		INSERT INTO checkpoints (reader_id, book_id, page_number, answers, quiz_state, audio_position_sec, percent_complete)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (reader_id, book_id) DO UPDATE SET
			page_number = excluded.page_number,
			answers = excluded.answers,
			quiz_state = excluded.quiz_state,
			audio_position_sec = excluded.audio_position_sec,
			percent_complete = GREATEST(checkpoints.percent_complete, excluded.percent_complete),
			updated_at = CURRENT_TIMESTAMP
	`
}

func (d *PostgresDialect) UpsertReaderSettingQuery() string {
	return `
		INSERT INTO reader_settings (reader_id, setting_key, setting_value)
		VALUES (?, ?, ?)
		ON CONFLICT (reader_id, setting_key) DO UPDATE SET
			setting_value = excluded.setting_value,
			updated_at = CURRENT_TIMESTAMP
	`
}

func (d *PostgresDialect) InsertCompletedBookQuery() string {
	return "INSERT INTO completed_books (reader_id, book_id) VALUES (?, ?) ON CONFLICT (reader_id, book_id) DO NOTHING"
}
