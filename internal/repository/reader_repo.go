package repository

import (
	"database/sql"

	"storynest/internal/database"
	"storynest/internal/models"
)

// ReaderRepository handles reader profiles and their families
type ReaderRepository struct {
	db *database.DB
}

// NewReaderRepository creates a new reader repository
func NewReaderRepository(db *database.DB) *ReaderRepository {
	return &ReaderRepository{db: db}
}

// GetByID retrieves a reader by ID, or nil if not found
func (r *ReaderRepository) GetByID(readerID int64) (*models.Reader, error) {
	query := `
		SELECT id, family_id, name, avatar_color, created_at, updated_at
		FROM readers
		WHERE id = ?
	`

	reader := &models.Reader{}
	err := r.db.QueryRow(query, readerID).Scan(
		&reader.ID,
		&reader.FamilyID,
		&reader.Name,
		&reader.AvatarColor,
		&reader.CreatedAt,
		&reader.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reader, nil
}

// ListByFamily retrieves all readers in a family
func (r *ReaderRepository) ListByFamily(familyID int64) ([]models.Reader, error) {
	query := `
		SELECT id, family_id, name, avatar_color, created_at, updated_at
		FROM readers
		WHERE family_id = ?
		ORDER BY name ASC
	`

	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readers []models.Reader
	for rows.Next() {
		var reader models.Reader
		err := rows.Scan(
			&reader.ID,
			&reader.FamilyID,
			&reader.Name,
			&reader.AvatarColor,
			&reader.CreatedAt,
			&reader.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
	}

	return readers, rows.Err()
}

// Create inserts a new reader profile
func (r *ReaderRepository) Create(familyID int64, name, avatarColor string) (*models.Reader, error) {
	query := `
		INSERT INTO readers (family_id, name, avatar_color)
		VALUES (?, ?, ?)
	`

	id, err := r.db.ExecReturningID(query, familyID, name, avatarColor)
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// GetFamily retrieves a family by ID, or nil if not found
func (r *ReaderRepository) GetFamily(familyID int64) (*models.Family, error) {
	query := `
		SELECT id, parent_name, parent_email, pin_hash, created_at, updated_at
		FROM families
		WHERE id = ?
	`

	family := &models.Family{}
	err := r.db.QueryRow(query, familyID).Scan(
		&family.ID,
		&family.ParentName,
		&family.ParentEmail,
		&family.PinHash,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return family, nil
}

// CreateFamily inserts a new family account
func (r *ReaderRepository) CreateFamily(parentName, parentEmail, pinHash string) (*models.Family, error) {
	query := `
		INSERT INTO families (parent_name, parent_email, pin_hash)
		VALUES (?, ?, ?)
	`

	id, err := r.db.ExecReturningID(query, parentName, parentEmail, pinHash)
	if err != nil {
		return nil, err
	}
	return r.GetFamily(id)
}

// GetWithStats retrieves a reader together with reading statistics for
// dashboard screens
func (r *ReaderRepository) GetWithStats(readerID int64) (*models.ReaderWithStats, error) {
	reader, err := r.GetByID(readerID)
	if err != nil || reader == nil {
		return nil, err
	}

	stats := &models.ReaderWithStats{Reader: *reader}

	query := `
		SELECT
			(SELECT COUNT(*) FROM checkpoints WHERE reader_id = ?),
			(SELECT COUNT(*) FROM completed_books WHERE reader_id = ?),
			(SELECT COUNT(*) FROM awards WHERE reader_id = ?)
	`
	err = r.db.QueryRow(query, readerID, readerID, readerID).Scan(
		&stats.BooksStarted,
		&stats.BooksCompleted,
		&stats.AwardCount,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
