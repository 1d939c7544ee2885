package client

import (
	"context"

	"storynest/internal/models"
)

// EngineBinding adapts the API client to the playback engine's collaborator
// interfaces for one book. The engine addresses books by an opaque string
// identifier and never sees the transport.
type EngineBinding struct {
	client *Client
	book   string
}

// Bind creates an engine binding for one book identifier (numeric id or slug)
func (c *Client) Bind(book string) *EngineBinding {
	return &EngineBinding{client: c, book: book}
}

// Load fetches the remote checkpoint, satisfying engine.CheckpointStore
func (b *EngineBinding) Load(ctx context.Context, bookID string) (*models.Checkpoint, error) {
	return b.client.GetCheckpoint(ctx, bookID)
}

// Save submits a partial checkpoint update, satisfying engine.CheckpointStore
func (b *EngineBinding) Save(ctx context.Context, bookID string, patch models.CheckpointPatch) error {
	_, err := b.client.SaveCheckpoint(ctx, bookID, patch)
	return err
}

// Reset is part of engine.CheckpointStore. The API requires a parent PIN
// for resets, which the engine has no business holding, so resets issued
// through a binding go out with an empty PIN and the server rejects them.
// Parent flows call Client.ResetProgress directly.
func (b *EngineBinding) Reset(ctx context.Context, bookID string) error {
	return b.client.ResetProgress(ctx, bookID, "")
}

// RecordAttempt submits a quiz attempt, satisfying engine.AttemptRecorder
func (b *EngineBinding) RecordAttempt(ctx context.Context, attempt models.QuizAttempt) error {
	return b.client.RecordAttempt(ctx, b.book, attempt.PageID, attempt.ScoreCorrect, attempt.ScoreTotal, attempt.Mode)
}

// MarkComplete marks the bound book finished, satisfying engine.BookCompleter
func (b *EngineBinding) MarkComplete(ctx context.Context) (bool, error) {
	return b.client.CompleteBook(ctx, b.book)
}
