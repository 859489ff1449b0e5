package store

import (
	"database/sql"
	"fmt"

	"photobox/internal/model"
)

type MediaStore struct {
	db *sql.DB
}

func NewMediaStore(db *sql.DB) *MediaStore {
	return &MediaStore{db: db}
}

func scanMedia(scanner interface{ Scan(...any) error }) (*model.Media, error) {
	var m model.Media
	var s3Key sql.NullString
	err := scanner.Scan(
		&m.ID, &m.UserID, &m.Filename, &m.OriginalName, &m.ContentType,
		&m.Size, &m.StorageType, &s3Key, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s3Key.Valid {
		m.S3Key = &s3Key.String
	}
	return &m, nil
}

const mediaCols = `id, user_id, filename, original_name, content_type, size_bytes, storage_type, s3_key, created_at`

func (s *MediaStore) Create(userID int64, filename, originalName, contentType string, size int64, storageType string, s3Key *string) (*model.Media, error) {
	var key sql.NullString
	if s3Key != nil {
		key = sql.NullString{String: *s3Key, Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO media (user_id, filename, original_name, content_type, size_bytes, storage_type, s3_key) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, filename, originalName, contentType, size, storageType, key,
	)
	if err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MediaStore) GetByID(id int64) (*model.Media, error) {
	row := s.db.QueryRow(`SELECT `+mediaCols+` FROM media WHERE id = ?`, id)
	m, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return m, nil
}

// ListByUser returns the user's media, newest first.
func (s *MediaStore) ListByUser(userID int64) ([]model.Media, error) {
	rows, err := s.db.Query(
		`SELECT `+mediaCols+` FROM media WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var items []model.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media: %w", err)
	}
	return items, nil
}

func (s *MediaStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}
