package handlers

import (
	"time"

	"storynest/internal/models"
)

// BookResponse is the catalog entry shape returned by the API
type BookResponse struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	QuizMode    string `json:"quizMode"`
	PageCount   int    `json:"pageCount"`
	CoverImage  string `json:"coverImage,omitempty"`
}

// PageResponse is one story page with its media references
type PageResponse struct {
	Index       int               `json:"index"`
	Text        string            `json:"text,omitempty"`
	SceneKey    string            `json:"sceneKey,omitempty"`
	AudioSource string            `json:"audioSource,omitempty"`
	Loop        *LoopResponse     `json:"loop,omitempty"`
	Question    *QuestionResponse `json:"question,omitempty"`
}

// LoopResponse describes a page clip's playback segments
type LoopResponse struct {
	InitialStart float64  `json:"initialStart"`
	InitialEnd   float64  `json:"initialEnd"`
	LoopStart    *float64 `json:"loopStart,omitempty"`
	LoopEnd      *float64 `json:"loopEnd,omitempty"`
}

// QuestionResponse is an embedded quiz question. The expected answer is
// included: the content endpoint is bearer-authenticated and the player
// evaluates gates locally so a reader can keep reading offline.
type QuestionResponse struct {
	Key     string   `json:"key"`
	Prompt  string   `json:"prompt"`
	Answer  string   `json:"answer"`
	Choices []string `json:"choices,omitempty"`
}

// BookContentResponse combines a book with its ordered pages
type BookContentResponse struct {
	Book  BookResponse   `json:"book"`
	Pages []PageResponse `json:"pages"`
}

// CheckpointResponse is resumable progress for one reader and book
type CheckpointResponse struct {
	BookID           int64             `json:"bookId"`
	PageNumber       int               `json:"pageNumber"`
	Answers          map[string]string `json:"answers"`
	QuizState        string            `json:"quizState,omitempty"`
	AudioPositionSec float64           `json:"audioPositionSec"`
	PercentComplete  int               `json:"percentComplete"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// CheckpointRequest is a partial checkpoint update; absent fields are left
// untouched
type CheckpointRequest struct {
	PageNumber       *int              `json:"pageNumber"`
	Answers          map[string]string `json:"answers"`
	QuizState        *string           `json:"quizState"`
	AudioPositionSec *float64          `json:"audioPositionSec"`
	PercentComplete  *int              `json:"percentComplete"`
}

// ResetRequest carries the parent PIN guarding a progress reset
type ResetRequest struct {
	Pin string `json:"pin"`
}

// AttemptRequest is one quiz submission batch
type AttemptRequest struct {
	PageID       *int64 `json:"pageId"`
	ScoreCorrect int    `json:"scoreCorrect"`
	ScoreTotal   int    `json:"scoreTotal"`
	Mode         string `json:"mode"`
}

// AttemptResponse is a stored quiz attempt
type AttemptResponse struct {
	ID           int64     `json:"id"`
	BookID       int64     `json:"bookId"`
	PageID       *int64    `json:"pageId,omitempty"`
	ScoreCorrect int       `json:"scoreCorrect"`
	ScoreTotal   int       `json:"scoreTotal"`
	Percentage   int       `json:"percentage"`
	Mode         string    `json:"mode"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SessionResponse is a derived cluster of quiz attempts
type SessionResponse struct {
	BookID       int64     `json:"bookId"`
	StartAt      time.Time `json:"startAt"`
	EndAt        time.Time `json:"endAt"`
	TotalCorrect int       `json:"totalCorrect"`
	TotalTotal   int       `json:"totalTotal"`
	Percentage   int       `json:"percentage"`
	Mode         string    `json:"mode"`
	Attempts     int       `json:"attempts"`
}

// CompleteResponse reports the outcome of a completion request
type CompleteResponse struct {
	Completed    bool `json:"completed"`
	NewlyAwarded bool `json:"newlyAwarded"`
}

// AverageResponse is a reader's average quiz score across books
type AverageResponse struct {
	AveragePercentage int `json:"averagePercentage"`
	SessionsCounted   int `json:"sessionsCounted"`
}

// AwardResponse is one earned award
type AwardResponse struct {
	ID       int64     `json:"id"`
	BookID   int64     `json:"bookId"`
	Kind     string    `json:"kind"`
	IssuedAt time.Time `json:"issuedAt"`
}

func toBookResponse(b models.Book) BookResponse {
	return BookResponse{
		ID:          b.ID,
		Slug:        b.Slug,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		QuizMode:    string(b.QuizMode),
		PageCount:   b.PageCount,
		CoverImage:  b.CoverImage,
	}
}

func toPageResponse(p models.Page) PageResponse {
	resp := PageResponse{
		Index:       p.Index,
		Text:        p.Text,
		SceneKey:    p.SceneKey,
		AudioSource: p.AudioSource,
	}
	if p.Loop != nil {
		resp.Loop = &LoopResponse{
			InitialStart: p.Loop.InitialStart,
			InitialEnd:   p.Loop.InitialEnd,
			LoopStart:    p.Loop.LoopStart,
			LoopEnd:      p.Loop.LoopEnd,
		}
	}
	if p.Question != nil {
		resp.Question = &QuestionResponse{
			Key:     p.Question.Key,
			Prompt:  p.Question.Prompt,
			Answer:  p.Question.Answer,
			Choices: p.Question.Choices,
		}
	}
	return resp
}

func toCheckpointResponse(c *models.Checkpoint) CheckpointResponse {
	answers := c.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	return CheckpointResponse{
		BookID:           c.BookID,
		PageNumber:       c.PageNumber,
		Answers:          answers,
		QuizState:        c.QuizState,
		AudioPositionSec: c.AudioPositionSec,
		PercentComplete:  c.PercentComplete,
		UpdatedAt:        c.UpdatedAt,
	}
}

func toAttemptResponse(a models.QuizAttempt) AttemptResponse {
	return AttemptResponse{
		ID:           a.ID,
		BookID:       a.BookID,
		PageID:       a.PageID,
		ScoreCorrect: a.ScoreCorrect,
		ScoreTotal:   a.ScoreTotal,
		Percentage:   a.Percentage,
		Mode:         string(a.Mode),
		CreatedAt:    a.CreatedAt,
	}
}

func toSessionResponse(s models.QuizSession) SessionResponse {
	return SessionResponse{
		BookID:       s.BookID,
		StartAt:      s.StartAt,
		EndAt:        s.EndAt,
		TotalCorrect: s.TotalCorrect,
		TotalTotal:   s.TotalTotal,
		Percentage:   s.Percentage,
		Mode:         string(s.Mode),
		Attempts:     s.Attempts,
	}
}
