package models

import "time"

// Checkpoint represents resumable reading progress for one (reader, book) pair.
// There is exactly one row per pair; writes upsert it. PercentComplete is
// monotonic: the stored value never decreases across successive writes.
type Checkpoint struct {
	ID               int64
	ReaderID         int64
	BookID           int64
	PageNumber       int // 1-based page the reader is on
	Answers          map[string]string
	QuizState        string // opaque per-story quiz payload, JSON
	AudioPositionSec float64
	PercentComplete  int // 0-100
	UpdatedAt        time.Time
}

// CheckpointPatch is a partial checkpoint update. Nil fields are left
// untouched by the upsert, never nulled.
type CheckpointPatch struct {
	PageNumber       *int
	Answers          map[string]string
	QuizState        *string
	AudioPositionSec *float64
	PercentComplete  *int
}

// QuizAttempt is an immutable record of one quiz submission batch
type QuizAttempt struct {
	ID           int64
	ReaderID     int64
	BookID       int64
	PageID       *int64
	ScoreCorrect int
	ScoreTotal   int
	Percentage   int
	Mode         QuizMode
	CreatedAt    time.Time
}

// QuizSession is a derived cluster of attempts separated by no more than a
// configured idle gap. It is computed on demand and never persisted.
type QuizSession struct {
	ReaderID     int64
	BookID       int64
	StartAt      time.Time
	EndAt        time.Time
	TotalCorrect int
	TotalTotal   int
	Percentage   int
	Mode         QuizMode
	Attempts     int
}

// CompletedBook records that a reader finished a book
type CompletedBook struct {
	ID          int64
	ReaderID    int64
	BookID      int64
	CompletedAt time.Time
}

// Award represents a celebratory award issued on first completion of a book
type Award struct {
	ID       int64
	ReaderID int64
	BookID   int64
	Kind     string
	IssuedAt time.Time
}
