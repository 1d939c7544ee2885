package repository

import (
	"time"

	"storynest/internal/database"
	"storynest/internal/models"
)

// CompletionRepository records finished books and the awards they issue
type CompletionRepository struct {
	db *database.DB
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db *database.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// MarkCompleted records that a reader finished a book. Returns true only for
// the first completion of the pair; repeats are absorbed by the dialect's
// insert-if-absent, so the caller can trigger one-time side effects off the
// return value.
func (r *CompletionRepository) MarkCompleted(readerID, bookID int64) (bool, error) {
	result, err := r.db.Exec(r.db.Dialect.InsertCompletedBookQuery(), readerID, bookID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// IsCompleted reports whether a reader has finished a book
func (r *CompletionRepository) IsCompleted(readerID, bookID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM completed_books WHERE reader_id = ? AND book_id = ?"
	err := r.db.QueryRow(query, readerID, bookID).Scan(&count)
	return count > 0, err
}

// CreateAward issues an award to a reader for a book
func (r *CompletionRepository) CreateAward(readerID, bookID int64, kind string) (*models.Award, error) {
	query := `
		INSERT INTO awards (reader_id, book_id, kind)
		VALUES (?, ?, ?)
	`

	id, err := r.db.ExecReturningID(query, readerID, bookID, kind)
	if err != nil {
		return nil, err
	}

	return &models.Award{
		ID:       id,
		ReaderID: readerID,
		BookID:   bookID,
		Kind:     kind,
		IssuedAt: time.Now(),
	}, nil
}

// ListAwards returns a reader's awards, newest first
func (r *CompletionRepository) ListAwards(readerID int64) ([]models.Award, error) {
	query := `
		SELECT id, reader_id, book_id, kind, issued_at
		FROM awards
		WHERE reader_id = ?
		ORDER BY issued_at DESC
	`

	rows, err := r.db.Query(query, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []models.Award
	for rows.Next() {
		var a models.Award
		if err := rows.Scan(&a.ID, &a.ReaderID, &a.BookID, &a.Kind, &a.IssuedAt); err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}

	return awards, rows.Err()
}
