package models

import "time"

// Reader represents a child profile in the system
type Reader struct {
	ID          int64
	FamilyID    int64
	Name        string
	AvatarColor string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Family represents a household account owning one or more readers
type Family struct {
	ID          int64
	ParentName  string
	ParentEmail string
	PinHash     string // bcrypt hash of the parent PIN guarding destructive actions
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReaderSetting is a single per-reader preference value
type ReaderSetting struct {
	ReaderID  int64
	Key       string
	Value     string
	UpdatedAt time.Time
}

// ReaderWithStats combines a reader with reading statistics for dashboards
type ReaderWithStats struct {
	Reader         Reader
	BooksStarted   int
	BooksCompleted int
	AwardCount     int
}
