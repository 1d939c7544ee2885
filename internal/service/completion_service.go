package service

import (
	"context"
	"log"

	"storynest/internal/models"
	"storynest/internal/repository"
)

// AwardBookComplete is issued the first time a reader finishes a book
const AwardBookComplete = "book_complete"

// CompletionService handles book completion: recording the finish, issuing
// the first-completion award, and notifying the parent. Completion is
// idempotent per (reader, book) pair; re-finishing a book changes nothing.
type CompletionService struct {
	completionRepo *repository.CompletionRepository
	checkpointRepo *repository.CheckpointRepository
	readerRepo     *repository.ReaderRepository
	bookService    *BookService
	emailService   *EmailService
}

// NewCompletionService creates a new completion service
func NewCompletionService(completionRepo *repository.CompletionRepository, checkpointRepo *repository.CheckpointRepository, readerRepo *repository.ReaderRepository, bookService *BookService, emailService *EmailService) *CompletionService {
	return &CompletionService{
		completionRepo: completionRepo,
		checkpointRepo: checkpointRepo,
		readerRepo:     readerRepo,
		bookService:    bookService,
		emailService:   emailService,
	}
}

// CompleteBook marks a book finished for a reader. On the first completion
// it pins the checkpoint at 100%, issues the award, and emails the parent;
// repeats return newlyAwarded=false and do nothing else.
func (s *CompletionService) CompleteBook(ctx context.Context, readerID int64, bookIdentifier string) (bool, error) {
	book, err := s.bookService.GetBook(bookIdentifier)
	if err != nil {
		return false, err
	}

	newly, err := s.completionRepo.MarkCompleted(readerID, book.ID)
	if err != nil {
		return false, err
	}
	if !newly {
		return false, nil
	}

	hundred := 100
	lastPage := book.PageCount
	if _, err := s.checkpointRepo.Upsert(readerID, book.ID, models.CheckpointPatch{
		PageNumber:      &lastPage,
		PercentComplete: &hundred,
	}); err != nil {
		log.Printf("Failed to pin checkpoint at 100%% for reader %d book %d: %v", readerID, book.ID, err)
	}

	if _, err := s.completionRepo.CreateAward(readerID, book.ID, AwardBookComplete); err != nil {
		log.Printf("Failed to create award for reader %d book %d: %v", readerID, book.ID, err)
	}

	s.notifyParent(ctx, readerID, book)

	return true, nil
}

// notifyParent emails the reader's parent about the completion. Email
// failure never fails the completion itself.
func (s *CompletionService) notifyParent(ctx context.Context, readerID int64, book *models.Book) {
	if !s.emailService.IsEnabled() {
		return
	}

	reader, err := s.readerRepo.GetByID(readerID)
	if err != nil || reader == nil {
		log.Printf("Skipping completion email: reader %d lookup failed: %v", readerID, err)
		return
	}

	family, err := s.readerRepo.GetFamily(reader.FamilyID)
	if err != nil || family == nil {
		log.Printf("Skipping completion email: family %d lookup failed: %v", reader.FamilyID, err)
		return
	}

	if err := s.emailService.SendBookCompletedEmail(ctx, family.ParentEmail, family.ParentName, reader.Name, book.Title); err != nil {
		log.Printf("Failed to send completion email for reader %d: %v", readerID, err)
	}
}

// IsCompleted reports whether the reader has ever finished the book
func (s *CompletionService) IsCompleted(readerID int64, bookIdentifier string) (bool, error) {
	book, err := s.bookService.GetBook(bookIdentifier)
	if err != nil {
		return false, err
	}
	return s.completionRepo.IsCompleted(readerID, book.ID)
}

// ListAwards returns every award the reader has earned, newest first
func (s *CompletionService) ListAwards(readerID int64) ([]models.Award, error) {
	return s.completionRepo.ListAwards(readerID)
}
