package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindMapping returns the category of the longest learned pattern contained
// in history, or "" when none applies.
func (s *Store) FindMapping(ctx context.Context, history string) (string, error) {
	query := `
		SELECT category
		FROM category_mappings
		WHERE $1 ILIKE '%' || raw_pattern || '%'
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	var category string

	err := s.db.QueryRowContext(ctx, query, history).Scan(&category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("finding category mapping: %w", err)
	}

	return category, nil
}

func (s *Store) CreateMapping(ctx context.Context, rawPattern, category string) error {
	query := `
		INSERT INTO category_mappings (raw_pattern, category, created_at)
		VALUES ($1, $2, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, rawPattern, category); err != nil {
		return fmt.Errorf("creating category mapping: %w", err)
	}

	return nil
}
