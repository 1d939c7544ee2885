package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"storynest/internal/models"
	"storynest/internal/repository"
)

// ErrBookNotFound is returned when no book matches the given identifier
var ErrBookNotFound = errors.New("book not found")

const bookCacheTTL = 5 * time.Minute

type cachedBook struct {
	book     *models.BookWithPages
	loadedAt time.Time
}

// BookService serves the story catalog. Full book content (pages, loop
// windows, questions) is expensive to assemble, so lookups are cached and
// concurrent misses for the same book are collapsed into one load.
type BookService struct {
	bookRepo *repository.BookRepository

	mu    sync.RWMutex
	cache map[string]cachedBook
	group singleflight.Group
}

// NewBookService creates a new book service
func NewBookService(bookRepo *repository.BookRepository) *BookService {
	return &BookService{
		bookRepo: bookRepo,
		cache:    make(map[string]cachedBook),
	}
}

// ListBooks returns the full catalog without page content
func (s *BookService) ListBooks() ([]models.Book, error) {
	return s.bookRepo.List()
}

// GetBook resolves a book by numeric ID or slug, without page content
func (s *BookService) GetBook(identifier string) (*models.Book, error) {
	book, err := s.bookRepo.GetByIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// GetBookContent resolves a book by numeric ID or slug and loads its full
// page content. Repeated lookups within the cache TTL are served from
// memory; concurrent cache misses share a single repository load.
func (s *BookService) GetBookContent(identifier string) (*models.BookWithPages, error) {
	s.mu.RLock()
	entry, ok := s.cache[identifier]
	s.mu.RUnlock()
	if ok && time.Since(entry.loadedAt) < bookCacheTTL {
		return entry.book, nil
	}

	v, err, _ := s.group.Do(identifier, func() (interface{}, error) {
		book, err := s.bookRepo.GetByIdentifier(identifier)
		if err != nil {
			return nil, err
		}
		if book == nil {
			return nil, ErrBookNotFound
		}

		pages, err := s.bookRepo.GetPages(book.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pages for book %d: %w", book.ID, err)
		}

		bw := &models.BookWithPages{Book: *book, Pages: pages}
		s.mu.Lock()
		s.cache[identifier] = cachedBook{book: bw, loadedAt: time.Now()}
		s.mu.Unlock()
		return bw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.BookWithPages), nil
}

// InvalidateCache drops any cached content for the given identifier.
// Called after catalog imports so stale pages are not served.
func (s *BookService) InvalidateCache(identifier string) {
	s.mu.Lock()
	delete(s.cache, identifier)
	s.mu.Unlock()
}

// CreateBook inserts a book with its pages and questions, used by catalog
// imports
func (s *BookService) CreateBook(bw models.BookWithPages) (*models.Book, error) {
	book, err := s.bookRepo.Create(bw)
	if err != nil {
		return nil, err
	}
	s.InvalidateCache(book.Slug)
	s.InvalidateCache(fmt.Sprintf("%d", book.ID))
	return book, nil
}

// QuestionKeys returns the set of valid answer keys for a book, used to
// validate incoming checkpoint answer maps.
func (s *BookService) QuestionKeys(identifier string) (map[string]bool, error) {
	bw, err := s.GetBookContent(identifier)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool)
	for _, page := range bw.Pages {
		if page.Question != nil {
			keys[page.Question.Key] = true
		}
	}
	return keys, nil
}
