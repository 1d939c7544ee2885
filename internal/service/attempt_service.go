package service

import (
	"fmt"
	"math"
	"time"

	"storynest/internal/analytics"
	"storynest/internal/models"
	"storynest/internal/repository"
)

// AttemptService records quiz attempts and derives session reports from them
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	bookService *BookService
	sessionGap  time.Duration
}

// NewAttemptService creates a new attempt service
func NewAttemptService(attemptRepo *repository.AttemptRepository, bookService *BookService, sessionGap time.Duration) *AttemptService {
	if sessionGap <= 0 {
		sessionGap = analytics.DefaultSessionGap
	}
	return &AttemptService{
		attemptRepo: attemptRepo,
		bookService: bookService,
		sessionGap:  sessionGap,
	}
}

// RecordAttempt validates and stores one quiz submission batch
func (s *AttemptService) RecordAttempt(readerID int64, bookIdentifier string, pageID *int64, correct, total int, mode models.QuizMode) (*models.QuizAttempt, error) {
	if total < 1 {
		return nil, fmt.Errorf("scoreTotal must be positive, got %d", total)
	}
	if correct < 0 || correct > total {
		return nil, fmt.Errorf("scoreCorrect out of range: %d of %d", correct, total)
	}
	if mode != models.ModeRetry && mode != models.ModeStraight {
		return nil, fmt.Errorf("unknown quiz mode: %q", mode)
	}

	book, err := s.bookService.GetBook(bookIdentifier)
	if err != nil {
		return nil, err
	}

	attempt := models.QuizAttempt{
		ReaderID:     readerID,
		BookID:       book.ID,
		PageID:       pageID,
		ScoreCorrect: correct,
		ScoreTotal:   total,
		Percentage:   int(math.Round(float64(correct) / float64(total) * 100)),
		Mode:         mode,
	}
	return s.attemptRepo.Insert(attempt)
}

// ListAttempts returns all attempts for a reader and book in chronological
// order
func (s *AttemptService) ListAttempts(readerID int64, bookIdentifier string) ([]models.QuizAttempt, error) {
	book, err := s.bookService.GetBook(bookIdentifier)
	if err != nil {
		return nil, err
	}
	return s.attemptRepo.ListForReaderAndBook(readerID, book.ID)
}

// GetSessions clusters a reader's attempts for one book into quiz sessions
func (s *AttemptService) GetSessions(readerID int64, bookIdentifier string) ([]models.QuizSession, error) {
	attempts, err := s.ListAttempts(readerID, bookIdentifier)
	if err != nil {
		return nil, err
	}
	return analytics.ClusterSessions(attempts, s.sessionGap), nil
}

// GetLatestSession returns the most recent quiz session for a reader and
// book, or nil if the reader has no attempts
func (s *AttemptService) GetLatestSession(readerID int64, bookIdentifier string) (*models.QuizSession, error) {
	attempts, err := s.ListAttempts(readerID, bookIdentifier)
	if err != nil {
		return nil, err
	}
	return analytics.LatestSession(attempts, s.sessionGap), nil
}

// GetAverageScore returns the reader's average session percentage across
// every book they have attempted, plus the number of sessions counted
func (s *AttemptService) GetAverageScore(readerID int64) (int, int, error) {
	attempts, err := s.attemptRepo.ListForReader(readerID)
	if err != nil {
		return 0, 0, err
	}
	avg, sessions := analytics.AverageAcrossBooks(attempts, s.sessionGap)
	return avg, sessions, nil
}
