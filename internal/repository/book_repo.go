package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"storynest/internal/database"
	"storynest/internal/models"
)

// BookRepository handles the story catalog
type BookRepository struct {
	db *database.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *database.DB) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = "id, slug, title, author, description, quiz_mode, page_count, cover_image, created_at, updated_at"

// List returns all books ordered by title
func (r *BookRepository) List() ([]models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books ORDER BY title ASC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows.Scan)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}

	return books, rows.Err()
}

// GetByID retrieves a book by numeric id, or nil if not found
func (r *BookRepository) GetByID(id int64) (*models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE id = ?"
	return r.getOne(query, id)
}

// GetBySlug retrieves a book by its human slug, or nil if not found
func (r *BookRepository) GetBySlug(slug string) (*models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE slug = ?"
	return r.getOne(query, slug)
}

// GetByIdentifier resolves a book from an opaque identifier that may be a
// numeric id or a slug. Callers upstream of this point never need to know
// which form they were handed.
func (r *BookRepository) GetByIdentifier(identifier string) (*models.Book, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		book, err := r.GetByID(id)
		if book != nil || err != nil {
			return book, err
		}
		// A purely numeric slug is legal; fall through.
	}
	return r.GetBySlug(identifier)
}

func (r *BookRepository) getOne(query string, arg interface{}) (*models.Book, error) {
	book, err := scanBook(r.db.QueryRow(query, arg).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

func scanBook(scan func(...interface{}) error) (*models.Book, error) {
	book := &models.Book{}
	var mode string
	err := scan(
		&book.ID,
		&book.Slug,
		&book.Title,
		&book.Author,
		&book.Description,
		&mode,
		&book.PageCount,
		&book.CoverImage,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	book.QuizMode = models.QuizMode(mode)
	return book, nil
}

// GetPages returns a book's pages in reading order, with questions and loop
// windows attached
func (r *BookRepository) GetPages(bookID int64) ([]models.Page, error) {
	query := `
		SELECT id, book_id, page_index, text, scene_key, audio_source,
		       initial_start, initial_end, loop_start, loop_end
		FROM pages
		WHERE book_id = ?
		ORDER BY page_index ASC
	`

	rows, err := r.db.Query(query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		var p models.Page
		var initialStart, initialEnd sql.NullFloat64
		var loopStart, loopEnd sql.NullFloat64

		err := rows.Scan(
			&p.ID,
			&p.BookID,
			&p.Index,
			&p.Text,
			&p.SceneKey,
			&p.AudioSource,
			&initialStart,
			&initialEnd,
			&loopStart,
			&loopEnd,
		)
		if err != nil {
			return nil, err
		}

		if initialStart.Valid && initialEnd.Valid {
			window := &models.LoopWindow{
				InitialStart: initialStart.Float64,
				InitialEnd:   initialEnd.Float64,
			}
			if loopStart.Valid && loopEnd.Valid {
				ls, le := loopStart.Float64, loopEnd.Float64
				window.LoopStart = &ls
				window.LoopEnd = &le
			}
			p.Loop = window
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachQuestions(bookID, pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// attachQuestions loads every question for the book in one query and binds
// each to its page
func (r *BookRepository) attachQuestions(bookID int64, pages []models.Page) error {
	query := `
		SELECT q.id, q.page_id, q.question_key, q.prompt, q.answer, q.choices
		FROM questions q
		JOIN pages p ON p.id = q.page_id
		WHERE p.book_id = ?
	`

	rows, err := r.db.Query(query, bookID)
	if err != nil {
		return err
	}
	defer rows.Close()

	byPage := make(map[int64]*models.Question)
	for rows.Next() {
		q := &models.Question{}
		var choicesJSON string
		if err := rows.Scan(&q.ID, &q.PageID, &q.Key, &q.Prompt, &q.Answer, &choicesJSON); err != nil {
			return err
		}
		if choicesJSON != "" {
			if err := json.Unmarshal([]byte(choicesJSON), &q.Choices); err != nil {
				return fmt.Errorf("corrupt choices payload for question %d: %w", q.ID, err)
			}
		}
		byPage[q.PageID] = q
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range pages {
		if q, ok := byPage[pages[i].ID]; ok {
			pages[i].Question = q
		}
	}
	return nil
}

// Create inserts a book with its pages and questions, used by seeding and
// backup import
func (r *BookRepository) Create(bw models.BookWithPages) (*models.Book, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	bookID, err := tx.ExecReturningID(`
		INSERT INTO books (slug, title, author, description, quiz_mode, page_count, cover_image)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		bw.Book.Slug,
		bw.Book.Title,
		bw.Book.Author,
		bw.Book.Description,
		string(bw.Book.QuizMode),
		len(bw.Pages),
		bw.Book.CoverImage,
	)
	if err != nil {
		return nil, err
	}

	for _, page := range bw.Pages {
		var initialStart, initialEnd, loopStart, loopEnd interface{}
		if page.Loop != nil {
			initialStart = page.Loop.InitialStart
			initialEnd = page.Loop.InitialEnd
			if page.Loop.LoopStart != nil {
				loopStart = *page.Loop.LoopStart
			}
			if page.Loop.LoopEnd != nil {
				loopEnd = *page.Loop.LoopEnd
			}
		}

		pageID, err := tx.ExecReturningID(`
			INSERT INTO pages (book_id, page_index, text, scene_key, audio_source, initial_start, initial_end, loop_start, loop_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			bookID, page.Index, page.Text, page.SceneKey, page.AudioSource,
			initialStart, initialEnd, loopStart, loopEnd,
		)
		if err != nil {
			return nil, err
		}

		if page.Question != nil {
			choicesJSON, err := json.Marshal(page.Question.Choices)
			if err != nil {
				return nil, err
			}
			_, err = tx.Exec(`
				INSERT INTO questions (page_id, question_key, prompt, answer, choices)
				VALUES (?, ?, ?, ?, ?)
			`,
				pageID, page.Question.Key, page.Question.Prompt, page.Question.Answer, string(choicesJSON),
			)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(bookID)
}
