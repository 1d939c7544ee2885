package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"storynest/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string             `json:"version"`
	ExportedAt   time.Time          `json:"exported_at"`
	DatabaseType string             `json:"database_type"`
	Families     []FamilyBackup     `json:"families"`
	Readers      []ReaderBackup     `json:"readers"`
	Books        []BookBackup       `json:"books"`
	Checkpoints  []CheckpointBackup `json:"checkpoints"`
	Attempts     []AttemptBackup    `json:"attempts"`
	Completions  []CompletionBackup `json:"completions"`
	Awards       []AwardBackup      `json:"awards"`
	Settings     []SettingBackup    `json:"settings"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID          int64     `json:"id"`
	ParentName  string    `json:"parent_name"`
	ParentEmail string    `json:"parent_email"`
	PinHash     string    `json:"pin_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReaderBackup represents a reader record for backup
type ReaderBackup struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Name        string    `json:"name"`
	AvatarColor string    `json:"avatar_color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookBackup represents a book with its pages and questions for backup
type BookBackup struct {
	ID          int64        `json:"id"`
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Author      string       `json:"author"`
	Description string       `json:"description"`
	QuizMode    string       `json:"quiz_mode"`
	PageCount   int          `json:"page_count"`
	CoverImage  string       `json:"cover_image"`
	CreatedAt   time.Time    `json:"created_at"`
	Pages       []PageBackup `json:"pages"`
}

// PageBackup represents one story page for backup
type PageBackup struct {
	ID          int64           `json:"id"`
	PageIndex   int             `json:"page_index"`
	Text        string          `json:"text"`
	SceneKey    string          `json:"scene_key"`
	AudioSource string          `json:"audio_source"`
	LoopStart   *float64        `json:"loop_start"`
	LoopEnd     *float64        `json:"loop_end"`
	InitStart   *float64        `json:"initial_start"`
	InitEnd     *float64        `json:"initial_end"`
	Question    *QuestionBackup `json:"question"`
}

// QuestionBackup represents an embedded quiz question for backup
type QuestionBackup struct {
	ID      int64  `json:"id"`
	Key     string `json:"key"`
	Prompt  string `json:"prompt"`
	Answer  string `json:"answer"`
	Choices string `json:"choices"`
}

// CheckpointBackup represents a checkpoint record for backup
type CheckpointBackup struct {
	ReaderID         int64     `json:"reader_id"`
	BookID           int64     `json:"book_id"`
	PageNumber       int       `json:"page_number"`
	Answers          string    `json:"answers"`
	QuizState        string    `json:"quiz_state"`
	AudioPositionSec float64   `json:"audio_position_sec"`
	PercentComplete  int       `json:"percent_complete"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AttemptBackup represents a quiz attempt record for backup
type AttemptBackup struct {
	ID           int64     `json:"id"`
	ReaderID     int64     `json:"reader_id"`
	BookID       int64     `json:"book_id"`
	PageID       *int64    `json:"page_id"`
	ScoreCorrect int       `json:"score_correct"`
	ScoreTotal   int       `json:"score_total"`
	Percentage   int       `json:"percentage"`
	Mode         string    `json:"mode"`
	CreatedAt    time.Time `json:"created_at"`
}

// CompletionBackup represents a completed book record for backup
type CompletionBackup struct {
	ReaderID    int64     `json:"reader_id"`
	BookID      int64     `json:"book_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// AwardBackup represents an award record for backup
type AwardBackup struct {
	ID       int64     `json:"id"`
	ReaderID int64     `json:"reader_id"`
	BookID   int64     `json:"book_id"`
	Kind     string    `json:"kind"`
	IssuedAt time.Time `json:"issued_at"`
}

// SettingBackup represents a per-reader preference for backup
type SettingBackup struct {
	ReaderID int64  `json:"reader_id"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter exports the database to an io.Writer (useful for HTTP responses)
func (s *BackupService) ExportToWriter(w io.Writer) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:      "1.0",
		ExportedAt:   time.Now(),
		DatabaseType: "universal",
	}

	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportReaders(backup); err != nil {
		return fmt.Errorf("failed to export readers: %w", err)
	}
	if err := s.exportBooks(backup); err != nil {
		return fmt.Errorf("failed to export books: %w", err)
	}
	if err := s.exportCheckpoints(backup); err != nil {
		return fmt.Errorf("failed to export checkpoints: %w", err)
	}
	if err := s.exportAttempts(backup); err != nil {
		return fmt.Errorf("failed to export attempts: %w", err)
	}
	if err := s.exportCompletions(backup); err != nil {
		return fmt.Errorf("failed to export completions: %w", err)
	}
	if err := s.exportAwards(backup); err != nil {
		return fmt.Errorf("failed to export awards: %w", err)
	}
	if err := s.exportSettings(backup); err != nil {
		return fmt.Errorf("failed to export settings: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d families, %d readers, %d books, %d checkpoints, %d attempts, %d completions, %d awards, %d settings",
		len(backup.Families), len(backup.Readers), len(backup.Books),
		len(backup.Checkpoints), len(backup.Attempts), len(backup.Completions),
		len(backup.Awards), len(backup.Settings))

	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader (for file uploads)
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	log.Println("Starting database import...")

	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Import in order of dependencies
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importReaders(backup.Readers); err != nil {
		return fmt.Errorf("failed to import readers: %w", err)
	}
	if err := s.importBooks(backup.Books); err != nil {
		return fmt.Errorf("failed to import books: %w", err)
	}
	if err := s.importCheckpoints(backup.Checkpoints); err != nil {
		return fmt.Errorf("failed to import checkpoints: %w", err)
	}
	if err := s.importAttempts(backup.Attempts); err != nil {
		return fmt.Errorf("failed to import attempts: %w", err)
	}
	if err := s.importCompletions(backup.Completions); err != nil {
		return fmt.Errorf("failed to import completions: %w", err)
	}
	if err := s.importAwards(backup.Awards); err != nil {
		return fmt.Errorf("failed to import awards: %w", err)
	}
	if err := s.importSettings(backup.Settings); err != nil {
		return fmt.Errorf("failed to import settings: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	query := "SELECT id, parent_name, parent_email, pin_hash, created_at, updated_at FROM families ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.ParentName, &f.ParentEmail, &f.PinHash, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func (s *BackupService) exportReaders(backup *BackupData) error {
	query := "SELECT id, family_id, name, COALESCE(avatar_color, '#F0A132'), created_at, updated_at FROM readers ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r ReaderBackup
		if err := rows.Scan(&r.ID, &r.FamilyID, &r.Name, &r.AvatarColor, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return err
		}
		backup.Readers = append(backup.Readers, r)
	}
	return rows.Err()
}

func (s *BackupService) exportBooks(backup *BackupData) error {
	query := "SELECT id, slug, title, COALESCE(author, ''), COALESCE(description, ''), quiz_mode, page_count, COALESCE(cover_image, ''), created_at FROM books ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	var books []BookBackup
	for rows.Next() {
		var b BookBackup
		if err := rows.Scan(&b.ID, &b.Slug, &b.Title, &b.Author, &b.Description, &b.QuizMode, &b.PageCount, &b.CoverImage, &b.CreatedAt); err != nil {
			return err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range books {
		if err := s.exportPages(&books[i]); err != nil {
			return err
		}
	}

	backup.Books = books
	return nil
}

func (s *BackupService) exportPages(book *BookBackup) error {
	query := "SELECT id, page_index, COALESCE(text, ''), COALESCE(scene_key, ''), COALESCE(audio_source, ''), initial_start, initial_end, loop_start, loop_end FROM pages WHERE book_id = ? ORDER BY page_index"
	rows, err := s.db.Query(query, book.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PageBackup
		var initStart, initEnd, loopStart, loopEnd sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.PageIndex, &p.Text, &p.SceneKey, &p.AudioSource, &initStart, &initEnd, &loopStart, &loopEnd); err != nil {
			return err
		}
		if initStart.Valid {
			p.InitStart = &initStart.Float64
		}
		if initEnd.Valid {
			p.InitEnd = &initEnd.Float64
		}
		if loopStart.Valid {
			p.LoopStart = &loopStart.Float64
		}
		if loopEnd.Valid {
			p.LoopEnd = &loopEnd.Float64
		}

		if err := s.exportQuestion(&p); err != nil {
			return err
		}
		book.Pages = append(book.Pages, p)
	}
	return rows.Err()
}

func (s *BackupService) exportQuestion(page *PageBackup) error {
	query := "SELECT id, question_key, prompt, answer, COALESCE(choices, '') FROM questions WHERE page_id = ?"
	row := s.db.QueryRow(query, page.ID)

	var q QuestionBackup
	if err := row.Scan(&q.ID, &q.Key, &q.Prompt, &q.Answer, &q.Choices); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}
	page.Question = &q
	return nil
}

func (s *BackupService) exportCheckpoints(backup *BackupData) error {
	query := "SELECT reader_id, book_id, page_number, COALESCE(answers, '{}'), COALESCE(quiz_state, ''), audio_position_sec, percent_complete, updated_at FROM checkpoints ORDER BY reader_id, book_id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c CheckpointBackup
		if err := rows.Scan(&c.ReaderID, &c.BookID, &c.PageNumber, &c.Answers, &c.QuizState, &c.AudioPositionSec, &c.PercentComplete, &c.UpdatedAt); err != nil {
			return err
		}
		backup.Checkpoints = append(backup.Checkpoints, c)
	}
	return rows.Err()
}

func (s *BackupService) exportAttempts(backup *BackupData) error {
	query := "SELECT id, reader_id, book_id, page_id, score_correct, score_total, percentage, mode, created_at FROM quiz_attempts ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AttemptBackup
		var pageID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.ReaderID, &a.BookID, &pageID, &a.ScoreCorrect, &a.ScoreTotal, &a.Percentage, &a.Mode, &a.CreatedAt); err != nil {
			return err
		}
		if pageID.Valid {
			a.PageID = &pageID.Int64
		}
		backup.Attempts = append(backup.Attempts, a)
	}
	return rows.Err()
}

func (s *BackupService) exportCompletions(backup *BackupData) error {
	query := "SELECT reader_id, book_id, completed_at FROM completed_books ORDER BY reader_id, book_id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c CompletionBackup
		if err := rows.Scan(&c.ReaderID, &c.BookID, &c.CompletedAt); err != nil {
			return err
		}
		backup.Completions = append(backup.Completions, c)
	}
	return rows.Err()
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	log.Printf("Importing %d families...", len(families))
	for _, f := range families {
		query := "INSERT INTO families (id, parent_name, parent_email, pin_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, f.ID, f.ParentName, f.ParentEmail, f.PinHash, f.CreatedAt, f.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import family %d: %w", f.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importReaders(readers []ReaderBackup) error {
	log.Printf("Importing %d readers...", len(readers))
	for _, r := range readers {
		query := "INSERT INTO readers (id, family_id, name, avatar_color, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, r.ID, r.FamilyID, r.Name, r.AvatarColor, r.CreatedAt, r.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import reader %d: %w", r.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importBooks(books []BookBackup) error {
	log.Printf("Importing %d books...", len(books))
	for _, b := range books {
		query := "INSERT INTO books (id, slug, title, author, description, quiz_mode, page_count, cover_image, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, b.ID, b.Slug, b.Title, nullIfEmpty(b.Author), nullIfEmpty(b.Description), b.QuizMode, b.PageCount, nullIfEmpty(b.CoverImage), b.CreatedAt); err != nil {
			return fmt.Errorf("failed to import book %d: %w", b.ID, err)
		}

		for _, p := range b.Pages {
			pageQuery := "INSERT INTO pages (id, book_id, page_index, text, scene_key, audio_source, initial_start, initial_end, loop_start, loop_end) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			if _, err := s.db.Exec(pageQuery, p.ID, b.ID, p.PageIndex, p.Text, nullIfEmpty(p.SceneKey), nullIfEmpty(p.AudioSource), nullablePtr(p.InitStart), nullablePtr(p.InitEnd), nullablePtr(p.LoopStart), nullablePtr(p.LoopEnd)); err != nil {
				return fmt.Errorf("failed to import page %d for book %d: %w", p.ID, b.ID, err)
			}

			if p.Question != nil {
				q := p.Question
				questionQuery := "INSERT INTO questions (id, page_id, question_key, prompt, answer, choices) VALUES (?, ?, ?, ?, ?, ?)"
				if _, err := s.db.Exec(questionQuery, q.ID, p.ID, q.Key, q.Prompt, q.Answer, nullIfEmpty(q.Choices)); err != nil {
					return fmt.Errorf("failed to import question %d for page %d: %w", q.ID, p.ID, err)
				}
			}
		}
	}
	return nil
}

func (s *BackupService) importCheckpoints(checkpoints []CheckpointBackup) error {
	log.Printf("Importing %d checkpoints...", len(checkpoints))
	for _, c := range checkpoints {
		query := "INSERT INTO checkpoints (reader_id, book_id, page_number, answers, quiz_state, audio_position_sec, percent_complete, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, c.ReaderID, c.BookID, c.PageNumber, c.Answers, nullIfEmpty(c.QuizState), c.AudioPositionSec, c.PercentComplete, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import checkpoint for reader %d book %d: %w", c.ReaderID, c.BookID, err)
		}
	}
	return nil
}

func (s *BackupService) importAttempts(attempts []AttemptBackup) error {
	log.Printf("Importing %d attempts...", len(attempts))
	for _, a := range attempts {
		var pageID interface{}
		if a.PageID != nil {
			pageID = *a.PageID
		}
		query := "INSERT INTO quiz_attempts (id, reader_id, book_id, page_id, score_correct, score_total, percentage, mode, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, a.ID, a.ReaderID, a.BookID, pageID, a.ScoreCorrect, a.ScoreTotal, a.Percentage, a.Mode, a.CreatedAt); err != nil {
			return fmt.Errorf("failed to import attempt %d: %w", a.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importCompletions(completions []CompletionBackup) error {
	log.Printf("Importing %d completions...", len(completions))
	for _, c := range completions {
		query := "INSERT INTO completed_books (reader_id, book_id, completed_at) VALUES (?, ?, ?)"
		if _, err := s.db.Exec(query, c.ReaderID, c.BookID, c.CompletedAt); err != nil {
			return fmt.Errorf("failed to import completion for reader %d book %d: %w", c.ReaderID, c.BookID, err)
		}
	}
	return nil
}

func (s *BackupService) exportAwards(backup *BackupData) error {
	query := "SELECT id, reader_id, book_id, kind, issued_at FROM awards ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AwardBackup
		if err := rows.Scan(&a.ID, &a.ReaderID, &a.BookID, &a.Kind, &a.IssuedAt); err != nil {
			return err
		}
		backup.Awards = append(backup.Awards, a)
	}
	return rows.Err()
}

func (s *BackupService) exportSettings(backup *BackupData) error {
	query := "SELECT reader_id, setting_key, setting_value FROM reader_settings ORDER BY reader_id, setting_key"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st SettingBackup
		if err := rows.Scan(&st.ReaderID, &st.Key, &st.Value); err != nil {
			return err
		}
		backup.Settings = append(backup.Settings, st)
	}
	return rows.Err()
}

func (s *BackupService) importAwards(awards []AwardBackup) error {
	log.Printf("Importing %d awards...", len(awards))
	for _, a := range awards {
		query := "INSERT INTO awards (id, reader_id, book_id, kind, issued_at) VALUES (?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, a.ID, a.ReaderID, a.BookID, a.Kind, a.IssuedAt); err != nil {
			return fmt.Errorf("failed to import award %d: %w", a.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importSettings(settings []SettingBackup) error {
	log.Printf("Importing %d settings...", len(settings))
	for _, st := range settings {
		query := "INSERT INTO reader_settings (reader_id, setting_key, setting_value) VALUES (?, ?, ?)"
		if _, err := s.db.Exec(query, st.ReaderID, st.Key, st.Value); err != nil {
			return fmt.Errorf("failed to import setting %s for reader %d: %w", st.Key, st.ReaderID, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullablePtr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
