package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storynest/internal/models"
)

// Client is a typed HTTP client for the StoryNest API. It authenticates
// every request with the reader's bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// New creates a client for the given server and reader token
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type bookPayload struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	QuizMode    string `json:"quizMode"`
	PageCount   int    `json:"pageCount"`
	CoverImage  string `json:"coverImage"`
}

type loopPayload struct {
	InitialStart float64  `json:"initialStart"`
	InitialEnd   float64  `json:"initialEnd"`
	LoopStart    *float64 `json:"loopStart"`
	LoopEnd      *float64 `json:"loopEnd"`
}

type questionPayload struct {
	Key     string   `json:"key"`
	Prompt  string   `json:"prompt"`
	Answer  string   `json:"answer"`
	Choices []string `json:"choices"`
}

type pagePayload struct {
	Index       int              `json:"index"`
	Text        string           `json:"text"`
	SceneKey    string           `json:"sceneKey"`
	AudioSource string           `json:"audioSource"`
	Loop        *loopPayload     `json:"loop"`
	Question    *questionPayload `json:"question"`
}

type bookContentPayload struct {
	Book  bookPayload   `json:"book"`
	Pages []pagePayload `json:"pages"`
}

type checkpointPayload struct {
	BookID           int64             `json:"bookId"`
	PageNumber       int               `json:"pageNumber"`
	Answers          map[string]string `json:"answers"`
	QuizState        string            `json:"quizState"`
	AudioPositionSec float64           `json:"audioPositionSec"`
	PercentComplete  int               `json:"percentComplete"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

type checkpointRequest struct {
	PageNumber       *int              `json:"pageNumber,omitempty"`
	Answers          map[string]string `json:"answers,omitempty"`
	QuizState        *string           `json:"quizState,omitempty"`
	AudioPositionSec *float64          `json:"audioPositionSec,omitempty"`
	PercentComplete  *int              `json:"percentComplete,omitempty"`
}

type attemptRequest struct {
	PageID       *int64 `json:"pageId,omitempty"`
	ScoreCorrect int    `json:"scoreCorrect"`
	ScoreTotal   int    `json:"scoreTotal"`
	Mode         string `json:"mode"`
}

type completePayload struct {
	Completed    bool `json:"completed"`
	NewlyAwarded bool `json:"newlyAwarded"`
}

// SessionReport is one derived quiz session as returned by the API
type SessionReport struct {
	BookID       int64     `json:"bookId"`
	StartAt      time.Time `json:"startAt"`
	EndAt        time.Time `json:"endAt"`
	TotalCorrect int       `json:"totalCorrect"`
	TotalTotal   int       `json:"totalTotal"`
	Percentage   int       `json:"percentage"`
	Mode         string    `json:"mode"`
	Attempts     int       `json:"attempts"`
}

// AverageReport is the cross-book average for a reader
type AverageReport struct {
	AveragePercentage int `json:"averagePercentage"`
	SessionsCounted   int `json:"sessionsCounted"`
}

// ListBooks fetches the story catalog
func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var payload []bookPayload
	if err := c.do(ctx, http.MethodGet, "/api/books", nil, &payload); err != nil {
		return nil, err
	}
	books := make([]models.Book, 0, len(payload))
	for _, b := range payload {
		books = append(books, toBook(b))
	}
	return books, nil
}

// GetBookContent fetches a book with its full page list
func (c *Client) GetBookContent(ctx context.Context, book string) (*models.BookWithPages, error) {
	var payload bookContentPayload
	if err := c.do(ctx, http.MethodGet, "/api/books/"+book+"/content", nil, &payload); err != nil {
		return nil, err
	}

	bw := &models.BookWithPages{
		Book:  toBook(payload.Book),
		Pages: make([]models.Page, 0, len(payload.Pages)),
	}
	for _, p := range payload.Pages {
		page := models.Page{
			Index:       p.Index,
			Text:        p.Text,
			SceneKey:    p.SceneKey,
			AudioSource: p.AudioSource,
		}
		if p.Loop != nil {
			page.Loop = &models.LoopWindow{
				InitialStart: p.Loop.InitialStart,
				InitialEnd:   p.Loop.InitialEnd,
				LoopStart:    p.Loop.LoopStart,
				LoopEnd:      p.Loop.LoopEnd,
			}
		}
		if p.Question != nil {
			page.Question = &models.Question{
				Key:     p.Question.Key,
				Prompt:  p.Question.Prompt,
				Answer:  p.Question.Answer,
				Choices: p.Question.Choices,
			}
		}
		bw.Pages = append(bw.Pages, page)
	}
	return bw, nil
}

// GetCheckpoint fetches the reader's checkpoint for a book, or nil if the
// reader has not started it
func (c *Client) GetCheckpoint(ctx context.Context, book string) (*models.Checkpoint, error) {
	var payload checkpointPayload
	if err := c.do(ctx, http.MethodGet, "/api/books/"+book+"/checkpoint", nil, &payload); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toCheckpoint(payload), nil
}

// SaveCheckpoint submits a partial checkpoint update
func (c *Client) SaveCheckpoint(ctx context.Context, book string, patch models.CheckpointPatch) (*models.Checkpoint, error) {
	req := checkpointRequest{
		PageNumber:       patch.PageNumber,
		Answers:          patch.Answers,
		QuizState:        patch.QuizState,
		AudioPositionSec: patch.AudioPositionSec,
		PercentComplete:  patch.PercentComplete,
	}
	var payload checkpointPayload
	if err := c.do(ctx, http.MethodPut, "/api/books/"+book+"/checkpoint", req, &payload); err != nil {
		return nil, err
	}
	return toCheckpoint(payload), nil
}

// ResetProgress deletes the reader's checkpoint for a book. The parent PIN
// is required.
func (c *Client) ResetProgress(ctx context.Context, book, pin string) error {
	body := map[string]string{"pin": pin}
	return c.do(ctx, http.MethodPost, "/api/books/"+book+"/checkpoint/reset", body, nil)
}

// RecordAttempt submits one quiz attempt batch
func (c *Client) RecordAttempt(ctx context.Context, book string, pageID *int64, correct, total int, mode models.QuizMode) error {
	req := attemptRequest{
		PageID:       pageID,
		ScoreCorrect: correct,
		ScoreTotal:   total,
		Mode:         string(mode),
	}
	return c.do(ctx, http.MethodPost, "/api/books/"+book+"/attempts", req, nil)
}

// CompleteBook marks the book finished, returning whether an award was
// newly issued
func (c *Client) CompleteBook(ctx context.Context, book string) (bool, error) {
	var payload completePayload
	if err := c.do(ctx, http.MethodPost, "/api/books/"+book+"/complete", nil, &payload); err != nil {
		return false, err
	}
	return payload.NewlyAwarded, nil
}

// GetSessions fetches the reader's derived quiz sessions for a book
func (c *Client) GetSessions(ctx context.Context, book string) ([]SessionReport, error) {
	var payload []SessionReport
	if err := c.do(ctx, http.MethodGet, "/api/books/"+book+"/sessions", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetAverage fetches the reader's average score across books
func (c *Client) GetAverage(ctx context.Context) (*AverageReport, error) {
	var payload AverageReport
	if err := c.do(ctx, http.MethodGet, "/api/readers/me/average", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errPayload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &errPayload) != nil || errPayload.Error == "" {
			errPayload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errPayload.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toBook(b bookPayload) models.Book {
	return models.Book{
		ID:          b.ID,
		Slug:        b.Slug,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		QuizMode:    models.QuizMode(b.QuizMode),
		PageCount:   b.PageCount,
		CoverImage:  b.CoverImage,
	}
}

func toCheckpoint(p checkpointPayload) *models.Checkpoint {
	return &models.Checkpoint{
		BookID:           p.BookID,
		PageNumber:       p.PageNumber,
		Answers:          p.Answers,
		QuizState:        p.QuizState,
		AudioPositionSec: p.AudioPositionSec,
		PercentComplete:  p.PercentComplete,
		UpdatedAt:        p.UpdatedAt,
	}
}
