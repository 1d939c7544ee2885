package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"storynest/internal/database"
	"storynest/internal/models"
)

// CheckpointRepository persists reading checkpoints, one row per
// (reader, book) pair.
type CheckpointRepository struct {
	db *database.DB
}

// NewCheckpointRepository creates a new checkpoint repository
func NewCheckpointRepository(db *database.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Get retrieves the checkpoint for a reader and book, or nil if none exists
func (r *CheckpointRepository) Get(readerID, bookID int64) (*models.Checkpoint, error) {
	return getCheckpoint(r.db, readerID, bookID)
}

func getCheckpoint(q database.DBTX, readerID, bookID int64) (*models.Checkpoint, error) {
	query := `
		SELECT id, reader_id, book_id, page_number, answers, quiz_state,
		       audio_position_sec, percent_complete, updated_at
		FROM checkpoints
		WHERE reader_id = ? AND book_id = ?
	`

	cp := &models.Checkpoint{}
	var answersJSON string

	err := q.QueryRow(query, readerID, bookID).Scan(
		&cp.ID,
		&cp.ReaderID,
		&cp.BookID,
		&cp.PageNumber,
		&answersJSON,
		&cp.QuizState,
		&cp.AudioPositionSec,
		&cp.PercentComplete,
		&cp.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if answersJSON != "" {
		if err := json.Unmarshal([]byte(answersJSON), &cp.Answers); err != nil {
			return nil, fmt.Errorf("corrupt answers payload for checkpoint %d: %w", cp.ID, err)
		}
	}
	if cp.Answers == nil {
		cp.Answers = make(map[string]string)
	}

	return cp, nil
}

// Upsert applies a partial checkpoint update. Absent patch fields keep their
// stored values; the dialect's upsert additionally enforces that
// percent_complete never decreases, so a late out-of-order write can never
// roll completion back. Returns the stored row after the write.
func (r *CheckpointRepository) Upsert(readerID, bookID int64, patch models.CheckpointPatch) (*models.Checkpoint, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := getCheckpoint(tx, readerID, bookID)
	if err != nil {
		return nil, err
	}

	merged := mergeCheckpoint(existing, patch)
	answersJSON, err := json.Marshal(merged.Answers)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(tx.GetDialect().UpsertCheckpointQuery(),
		readerID,
		bookID,
		merged.PageNumber,
		string(answersJSON),
		merged.QuizState,
		merged.AudioPositionSec,
		merged.PercentComplete,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.Get(readerID, bookID)
}

// mergeCheckpoint folds a patch over an existing row (or over zero values
// for a fresh pair). Answer maps merge key-wise rather than replacing
// wholesale, so partial saves never drop earlier answers.
func mergeCheckpoint(existing *models.Checkpoint, patch models.CheckpointPatch) models.Checkpoint {
	merged := models.Checkpoint{
		PageNumber: 1,
		Answers:    make(map[string]string),
	}
	if existing != nil {
		merged = *existing
		merged.Answers = make(map[string]string, len(existing.Answers))
		for k, v := range existing.Answers {
			merged.Answers[k] = v
		}
	}

	if patch.PageNumber != nil {
		merged.PageNumber = *patch.PageNumber
	}
	if patch.QuizState != nil {
		merged.QuizState = *patch.QuizState
	}
	if patch.AudioPositionSec != nil {
		merged.AudioPositionSec = *patch.AudioPositionSec
	}
	if patch.PercentComplete != nil {
		merged.PercentComplete = *patch.PercentComplete
	}
	for k, v := range patch.Answers {
		merged.Answers[k] = v
	}

	return merged
}

// Delete removes the checkpoint for a reader and book. Deleting an absent
// row is a no-op, making reset idempotent.
func (r *CheckpointRepository) Delete(readerID, bookID int64) error {
	query := "DELETE FROM checkpoints WHERE reader_id = ? AND book_id = ?"
	_, err := r.db.Exec(query, readerID, bookID)
	return err
}

// ListForReader returns all of a reader's checkpoints, most recent first
func (r *CheckpointRepository) ListForReader(readerID int64) ([]models.Checkpoint, error) {
	query := `
		SELECT id, reader_id, book_id, page_number, answers, quiz_state,
		       audio_position_sec, percent_complete, updated_at
		FROM checkpoints
		WHERE reader_id = ?
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(query, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []models.Checkpoint
	for rows.Next() {
		var cp models.Checkpoint
		var answersJSON string
		err := rows.Scan(
			&cp.ID,
			&cp.ReaderID,
			&cp.BookID,
			&cp.PageNumber,
			&answersJSON,
			&cp.QuizState,
			&cp.AudioPositionSec,
			&cp.PercentComplete,
			&cp.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if answersJSON != "" {
			if err := json.Unmarshal([]byte(answersJSON), &cp.Answers); err != nil {
				return nil, fmt.Errorf("corrupt answers payload for checkpoint %d: %w", cp.ID, err)
			}
		}
		checkpoints = append(checkpoints, cp)
	}

	return checkpoints, rows.Err()
}
