package models

import "time"

// QuizMode controls how embedded questions gate page turning
type QuizMode string

const (
	// ModeRetry requires a correct answer before the reader may continue
	ModeRetry QuizMode = "retry"
	// ModeStraight unlocks continuation after a single submission, right or wrong
	ModeStraight QuizMode = "straight"
)

// Book represents a story in the catalog
type Book struct {
	ID          int64
	Slug        string
	Title       string
	Author      string
	Description string
	QuizMode    QuizMode
	PageCount   int
	CoverImage  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Page represents a single story page with its media references
type Page struct {
	ID          int64
	BookID      int64
	Index       int // zero-based position within the book
	Text        string
	SceneKey    string // resource cache key for the page's animated scene, empty if none
	AudioSource string // looping clip source key, empty if none
	Loop        *LoopWindow
	Question    *Question
}

// LoopWindow describes the playback segments of a looping clip.
// The initial segment plays once; the loop segment repeats indefinitely.
// A nil LoopStart/LoopEnd means no loop segment is configured.
type LoopWindow struct {
	InitialStart float64
	InitialEnd   float64
	LoopStart    *float64
	LoopEnd      *float64
}

// Question represents a quiz question embedded on a page
type Question struct {
	ID      int64
	PageID  int64
	Key     string // stable key used in checkpoint answer maps
	Prompt  string
	Answer  string
	Choices []string // empty for free-text questions
}

// BookWithPages combines a book with its ordered pages
type BookWithPages struct {
	Book  Book
	Pages []Page
}

// HasChoices reports whether the question is multiple choice
func (q *Question) HasChoices() bool {
	return len(q.Choices) > 0
}
