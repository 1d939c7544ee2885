package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"storynest/internal/models"
	"storynest/internal/repository"
	"storynest/internal/security"
)

// ErrInvalidPin is returned when a reset request carries the wrong parent PIN
var ErrInvalidPin = errors.New("invalid parent PIN")

// CheckpointService handles reading progress persistence
type CheckpointService struct {
	checkpointRepo *repository.CheckpointRepository
	readerRepo     *repository.ReaderRepository
	bookService    *BookService
}

// NewCheckpointService creates a new checkpoint service
func NewCheckpointService(checkpointRepo *repository.CheckpointRepository, readerRepo *repository.ReaderRepository, bookService *BookService) *CheckpointService {
	return &CheckpointService{
		checkpointRepo: checkpointRepo,
		readerRepo:     readerRepo,
		bookService:    bookService,
	}
}

// GetCheckpoint returns the checkpoint for a reader and book, or nil if the
// reader has not started the book
func (s *CheckpointService) GetCheckpoint(readerID int64, bookIdentifier string) (*models.Checkpoint, error) {
	book, err := s.bookService.GetBook(bookIdentifier)
	if err != nil {
		return nil, err
	}
	return s.checkpointRepo.Get(readerID, book.ID)
}

// SaveCheckpoint validates and applies a partial checkpoint update. Fields
// absent from the patch are left untouched. The stored percentComplete never
// decreases regardless of what the patch carries.
func (s *CheckpointService) SaveCheckpoint(readerID int64, bookIdentifier string, patch models.CheckpointPatch) (*models.Checkpoint, error) {
	bw, err := s.bookService.GetBookContent(bookIdentifier)
	if err != nil {
		return nil, err
	}

	if err := s.validatePatch(bw, &patch); err != nil {
		return nil, err
	}

	return s.checkpointRepo.Upsert(readerID, bw.Book.ID, patch)
}

// validatePatch rejects malformed updates before they reach storage. Page
// numbers are clamped to the book's range rather than rejected, matching the
// tolerant resume behavior used when loading.
func (s *CheckpointService) validatePatch(bw *models.BookWithPages, patch *models.CheckpointPatch) error {
	if patch.PageNumber != nil {
		page := *patch.PageNumber
		if page < 1 {
			page = 1
		}
		if page > bw.Book.PageCount {
			page = bw.Book.PageCount
		}
		patch.PageNumber = &page
	}

	if patch.PercentComplete != nil {
		pct := *patch.PercentComplete
		if pct < 0 || pct > 100 {
			return fmt.Errorf("percentComplete out of range: %d", pct)
		}
	}

	if patch.QuizState != nil && *patch.QuizState != "" {
		if !json.Valid([]byte(*patch.QuizState)) {
			return errors.New("quizState must be valid JSON")
		}
	}

	if len(patch.Answers) > 0 {
		keys := make(map[string]bool)
		for _, page := range bw.Pages {
			if page.Question != nil {
				keys[page.Question.Key] = true
			}
		}
		for key := range patch.Answers {
			if !keys[key] {
				return fmt.Errorf("unknown question key: %s", key)
			}
		}
	}

	return nil
}

// ResetProgress deletes the checkpoint for a reader and book. The request
// must carry the family's parent PIN; resetting is a parent-only action.
func (s *CheckpointService) ResetProgress(readerID int64, bookIdentifier, pin string) error {
	reader, err := s.readerRepo.GetByID(readerID)
	if err != nil {
		return err
	}
	if reader == nil {
		return errors.New("reader not found")
	}

	family, err := s.readerRepo.GetFamily(reader.FamilyID)
	if err != nil {
		return err
	}
	if family == nil || !security.CheckPin(family.PinHash, pin) {
		return ErrInvalidPin
	}

	book, err := s.bookService.GetBook(bookIdentifier)
	if err != nil {
		return err
	}

	return s.checkpointRepo.Delete(readerID, book.ID)
}

// ListCheckpoints returns all checkpoints for a reader, newest first
func (s *CheckpointService) ListCheckpoints(readerID int64) ([]models.Checkpoint, error) {
	return s.checkpointRepo.ListForReader(readerID)
}
