package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/models"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

// ListSources returns sources, optionally restricted to enabled ones.
func (s *Store) ListSources(ctx context.Context, enabledOnly bool) ([]models.Source, error) {
	query := `SELECT * FROM sources ORDER BY id`
	if enabledOnly {
		query = `SELECT * FROM sources WHERE enabled = 1 ORDER BY id`
	}

	var sources []models.Source
	if err := s.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// GetSource returns one source by id.
func (s *Store) GetSource(ctx context.Context, id int64) (*models.Source, error) {
	var src models.Source
	err := s.db.GetContext(ctx, &src, `SELECT * FROM sources WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

// CreateSource inserts a new source and returns it with its id.
func (s *Store) CreateSource(ctx context.Context, src *models.Source) error {
	if src.Type == "" {
		src.Type = "rss"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, type, url, enabled) VALUES (?, ?, ?, ?)`,
		src.Name, src.Type, src.URL, src.Enabled)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	src.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("source id: %w", err)
	}
	return nil
}

// UpdateSource updates name, url and enabled for an existing source.
func (s *Store) UpdateSource(ctx context.Context, src *models.Source) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET name = ?, url = ?, enabled = ? WHERE id = ?`,
		src.Name, src.URL, src.Enabled, src.ID)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSource removes a source.
func (s *Store) DeleteSource(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchSources records a successful fetch time on the given sources.
func (s *Store) TouchSources(ctx context.Context, ids []int64, at time.Time) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sources SET last_fetched_at = ? WHERE id = ?`, at, id); err != nil {
			return fmt.Errorf("touch source %d: %w", id, err)
		}
	}
	return nil
}

// CountSources returns the total number of configured sources.
func (s *Store) CountSources(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sources`); err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	return n, nil
}
