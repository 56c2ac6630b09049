package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/newsbrief-ai/newsbrief/internal/models"
)

// ErrDuplicateURL is returned when an insert collides with the unique
// URL constraint on raw_items.
var ErrDuplicateURL = fmt.Errorf("url already stored")

// InsertRawItem stores a collected article as a pending RawItem.
// A URL collision is surfaced as ErrDuplicateURL; already-committed
// rows are untouched.
func (s *Store) InsertRawItem(ctx context.Context, item *models.RawItem) error {
	var url interface{}
	if item.URL != "" {
		url = item.URL
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_items (source_id, title, content, url, author, published_at, status, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.SourceID, item.Title, item.Content, url, item.Author,
		item.PublishedAt, models.StatusPending, time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateURL
		}
		return fmt.Errorf("insert raw item: %w", err)
	}

	item.Status = models.StatusPending
	item.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("raw item id: %w", err)
	}
	return nil
}

// ListPendingItems returns pending items published within the window,
// newest first, joined with their source name for prompt construction.
// Items without a published timestamp fall back to their fetch time, in
// every window query, so a feed that omits dates still flows through to
// reports.
func (s *Store) ListPendingItems(ctx context.Context, window time.Duration, limit int) ([]models.RawItem, error) {
	cutoff := time.Now().UTC().Add(-window)

	var items []models.RawItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT r.id, r.source_id, r.title, r.content,
		       COALESCE(r.url, '') AS url, r.author, r.published_at,
		       r.status, r.fetched_at, r.created_at,
		       COALESCE(s.name, '') AS source_name
		FROM raw_items r
		LEFT JOIN sources s ON s.id = r.source_id
		WHERE r.status = 'pending'
		  AND COALESCE(r.published_at, r.fetched_at) >= ?
		ORDER BY COALESCE(r.published_at, r.fetched_at) DESC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	return items, nil
}

// ListRecentItems returns stored items (any status) fetched within the
// window, used to seed the deduplicator with the existing corpus.
func (s *Store) ListRecentItems(ctx context.Context, window time.Duration, limit int) ([]models.RawItem, error) {
	cutoff := time.Now().UTC().Add(-window)

	var items []models.RawItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT id, source_id, title, content, COALESCE(url, '') AS url,
		       author, published_at, status, fetched_at, created_at
		FROM raw_items
		WHERE fetched_at >= ?
		ORDER BY id DESC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent items: %w", err)
	}
	return items, nil
}

// ListItems returns items filtered by status with simple pagination.
func (s *Store) ListItems(ctx context.Context, status string, page, pageSize int) ([]models.RawItem, error) {
	query := `
		SELECT id, source_id, title, content, COALESCE(url, '') AS url,
		       author, published_at, status, fetched_at, created_at
		FROM raw_items`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	var items []models.RawItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// SetItemStatus transitions the given raw items to a new lifecycle state.
func (s *Store) SetItemStatus(ctx context.Context, ids []int64, status string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := bindIn(`UPDATE raw_items SET status = ? WHERE id IN (?)`, status, ids)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set item status: %w", err)
	}
	return nil
}

// CountRecentItems counts items published (or, lacking a date, fetched)
// within the window.
func (s *Store) CountRecentItems(ctx context.Context, window time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-window)
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM raw_items WHERE COALESCE(published_at, fetched_at) >= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("count recent items: %w", err)
	}
	return n, nil
}

// InsertProcessedItem persists a scoring (and possibly summarization)
// result for one raw item.
func (s *Store) InsertProcessedItem(ctx context.Context, item *models.ProcessedItem) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_items
			(raw_item_id, relevance, quality, timeliness, total_score,
			 category, keywords, title_zh, summary, reason, approved, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RawItemID, item.Relevance, item.Quality, item.Timeliness,
		item.TotalScore, item.Category, item.Keywords,
		item.TitleZh, item.Summary, item.Reason, item.Approved, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert processed item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("processed item id: %w", err)
	}
	return nil
}

// ListApprovedItems returns approved processed items whose raw items
// were published within the window, ordered by score descending.
func (s *Store) ListApprovedItems(ctx context.Context, window time.Duration, limit int) ([]models.ProcessedItem, error) {
	cutoff := time.Now().UTC().Add(-window)

	var items []models.ProcessedItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT p.id, p.raw_item_id, p.relevance, p.quality, p.timeliness,
		       p.total_score, p.category, p.keywords, p.title_zh, p.summary,
		       p.reason, p.approved, p.processed_at,
		       r.title, COALESCE(r.url, '') AS url, r.published_at,
		       COALESCE(s.name, '') AS source_name
		FROM processed_items p
		JOIN raw_items r ON r.id = p.raw_item_id
		LEFT JOIN sources s ON s.id = r.source_id
		WHERE p.approved = 1 AND COALESCE(r.published_at, r.fetched_at) >= ?
		ORDER BY p.total_score DESC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list approved items: %w", err)
	}
	return items, nil
}

// ListRejectedItems returns the highest-scoring unapproved items, used
// for the "not selected" report table.
func (s *Store) ListRejectedItems(ctx context.Context, limit int) ([]models.ProcessedItem, error) {
	var items []models.ProcessedItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT p.id, p.raw_item_id, p.relevance, p.quality, p.timeliness,
		       p.total_score, p.category, p.keywords, p.title_zh, p.summary,
		       p.reason, p.approved, p.processed_at,
		       r.title, COALESCE(r.url, '') AS url, r.published_at,
		       COALESCE(s.name, '') AS source_name
		FROM processed_items p
		JOIN raw_items r ON r.id = p.raw_item_id
		LEFT JOIN sources s ON s.id = r.source_id
		WHERE p.approved = 0
		ORDER BY p.total_score DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list rejected items: %w", err)
	}
	return items, nil
}

// CountProcessedAtLeast counts processed items with total score at or
// above the threshold.
func (s *Store) CountProcessedAtLeast(ctx context.Context, minScore int) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM processed_items WHERE total_score >= ?`, minScore)
	if err != nil {
		return 0, fmt.Errorf("count processed items: %w", err)
	}
	return n, nil
}

// CountProcessedForRaw reports how many processed rows exist for the
// given raw item ids.
func (s *Store) CountProcessedForRaw(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := bindIn(`SELECT COUNT(*) FROM processed_items WHERE raw_item_id IN (?)`, nil, ids)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count processed for raw: %w", err)
	}
	return n, nil
}

// bindIn expands an IN (?) clause. leading is an optional scalar bound
// before the id list.
func bindIn(query string, leading interface{}, ids []int64) (string, []interface{}, error) {
	args := []interface{}{}
	if leading != nil {
		args = append(args, leading)
	}
	args = append(args, ids)

	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("bind in clause: %w", err)
	}
	return query, expanded, nil
}
