package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/models"
)

// MaxReportVersion returns the highest version stored for a date, or 0
// when the date has no reports yet.
func (s *Store) MaxReportVersion(ctx context.Context, date string) (int, error) {
	var v sql.NullInt64
	err := s.db.GetContext(ctx, &v,
		`SELECT MAX(version) FROM reports WHERE report_date = ?`, date)
	if err != nil {
		return 0, fmt.Errorf("max report version: %w", err)
	}
	return int(v.Int64), nil
}

// CreateReport inserts a report and its item associations in one
// transaction. The version is assigned inside the transaction as one
// past the highest existing version for the date, so regenerating a
// day's digest never overwrites an earlier edition.
func (s *Store) CreateReport(ctx context.Context, report *models.Report, itemIDs []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer tx.Rollback()

	var v sql.NullInt64
	err = tx.GetContext(ctx, &v,
		`SELECT MAX(version) FROM reports WHERE report_date = ?`, report.ReportDate)
	if err != nil {
		return fmt.Errorf("next report version: %w", err)
	}
	report.Version = int(v.Int64) + 1
	if report.Status == "" {
		report.Status = models.ReportDraft
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reports (report_date, title, content, highlights, status, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ReportDate, report.Title, report.Content, report.Highlights,
		report.Status, report.Version, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	report.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("report id: %w", err)
	}

	for i, id := range itemIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO report_items (report_id, processed_item_id, order_index)
			VALUES (?, ?, ?)`, report.ID, id, i)
		if err != nil {
			return fmt.Errorf("insert report item %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}

// ListReports returns reports newest first, every version included.
func (s *Store) ListReports(ctx context.Context, page, pageSize int) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.SelectContext(ctx, &reports, `
		SELECT id, report_date, title, content, highlights, status, version,
		       created_at, published_at
		FROM reports
		ORDER BY report_date DESC, version DESC
		LIMIT ? OFFSET ?`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// GetReport returns one report by id.
func (s *Store) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	var r models.Report
	err := s.db.GetContext(ctx, &r, `
		SELECT id, report_date, title, content, highlights, status, version,
		       created_at, published_at
		FROM reports WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &r, nil
}

// LatestReport returns the newest version of the newest report date.
func (s *Store) LatestReport(ctx context.Context) (*models.Report, error) {
	var r models.Report
	err := s.db.GetContext(ctx, &r, `
		SELECT id, report_date, title, content, highlights, status, version,
		       created_at, published_at
		FROM reports
		ORDER BY report_date DESC, version DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return &r, nil
}

// PublishReport transitions a draft report to published.
func (s *Store) PublishReport(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports SET status = ?, published_at = ? WHERE id = ?`,
		models.ReportPublished, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReportItems returns a report's item associations in render order.
func (s *Store) ListReportItems(ctx context.Context, reportID int64) ([]models.ReportItem, error) {
	var items []models.ReportItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT id, report_id, processed_item_id, order_index
		FROM report_items
		WHERE report_id = ?
		ORDER BY order_index ASC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list report items: %w", err)
	}
	return items, nil
}
