package repository

import (
	"time"

	"storynest/internal/database"
	"storynest/internal/models"
)

// AttemptRepository handles the append-only quiz attempt log
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Insert appends a quiz attempt. Attempts are immutable; there is no update
// or delete, and no dedup.
func (r *AttemptRepository) Insert(attempt models.QuizAttempt) (*models.QuizAttempt, error) {
	query := `
		INSERT INTO quiz_attempts (reader_id, book_id, page_id, score_correct, score_total, percentage, mode)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	id, err := r.db.ExecReturningID(query,
		attempt.ReaderID,
		attempt.BookID,
		attempt.PageID,
		attempt.ScoreCorrect,
		attempt.ScoreTotal,
		attempt.Percentage,
		string(attempt.Mode),
	)
	if err != nil {
		return nil, err
	}

	attempt.ID = id
	attempt.CreatedAt = time.Now()
	return &attempt, nil
}

// ListForReaderAndBook returns a reader's attempts on one book, oldest first
func (r *AttemptRepository) ListForReaderAndBook(readerID, bookID int64) ([]models.QuizAttempt, error) {
	query := `
		SELECT id, reader_id, book_id, page_id, score_correct, score_total, percentage, mode, created_at
		FROM quiz_attempts
		WHERE reader_id = ? AND book_id = ?
		ORDER BY created_at ASC
	`
	return r.scanAttempts(query, readerID, bookID)
}

// ListForReader returns all of a reader's attempts across books, oldest first
func (r *AttemptRepository) ListForReader(readerID int64) ([]models.QuizAttempt, error) {
	query := `
		SELECT id, reader_id, book_id, page_id, score_correct, score_total, percentage, mode, created_at
		FROM quiz_attempts
		WHERE reader_id = ?
		ORDER BY created_at ASC
	`
	return r.scanAttempts(query, readerID)
}

func (r *AttemptRepository) scanAttempts(query string, args ...interface{}) ([]models.QuizAttempt, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.QuizAttempt
	for rows.Next() {
		var a models.QuizAttempt
		var mode string
		err := rows.Scan(
			&a.ID,
			&a.ReaderID,
			&a.BookID,
			&a.PageID,
			&a.ScoreCorrect,
			&a.ScoreTotal,
			&a.Percentage,
			&mode,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		a.Mode = models.QuizMode(mode)
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}
