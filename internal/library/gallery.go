package library

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manash/stylestudio/pkg/models"
)

// Record stores a gallery entry. Missing ids and timestamps are filled in and
// the "auto" aspect ratio is stored as 1:1.
func (s *Store) Record(ctx context.Context, entry models.GalleryEntry) error {
	if entry.Image.IsEmpty() {
		return models.ErrNoImageData
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gallery (id, image, mime_type, style_name, prompt, aspect_ratio, cost, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Image.Data, entry.Image.MIMEType, entry.StyleName, entry.Prompt,
		string(entry.AspectRatio.Normalize()), entry.Cost, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record gallery entry: %w", err)
	}
	return nil
}

// Gallery lists entries newest first. limit <= 0 returns everything.
func (s *Store) Gallery(ctx context.Context, limit int) ([]models.GalleryEntry, error) {
	query := `SELECT id, image, mime_type, style_name, prompt, aspect_ratio, cost, timestamp
		 FROM gallery ORDER BY timestamp DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.GalleryEntry
	for rows.Next() {
		var e models.GalleryEntry
		var aspect string
		if err := rows.Scan(&e.ID, &e.Image.Data, &e.Image.MIMEType, &e.StyleName, &e.Prompt,
			&aspect, &e.Cost, &e.Timestamp); err != nil {
			return nil, err
		}
		e.AspectRatio = models.AspectRatio(aspect)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) GalleryEntry(ctx context.Context, id string) (*models.GalleryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, image, mime_type, style_name, prompt, aspect_ratio, cost, timestamp
		 FROM gallery WHERE id = ?`, id)

	var e models.GalleryEntry
	var aspect string
	if err := row.Scan(&e.ID, &e.Image.Data, &e.Image.MIMEType, &e.StyleName, &e.Prompt,
		&aspect, &e.Cost, &e.Timestamp); err != nil {
		return nil, fmt.Errorf("gallery entry %s: %w", id, ErrNotFound)
	}
	e.AspectRatio = models.AspectRatio(aspect)
	return &e, nil
}

func (s *Store) DeleteGalleryEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gallery WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res, "gallery entry", id)
}

func (s *Store) ClearGallery(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM gallery`)
	return err
}

type CostSummary struct {
	TotalCost  float64
	EntryCount int
}

type StyleCostSummary struct {
	StyleName  string
	TotalCost  float64
	EntryCount int
}

func (s *Store) TotalCost(ctx context.Context) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COUNT(*) FROM gallery`)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) CostByDateRange(ctx context.Context, start, end time.Time) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COUNT(*)
		 FROM gallery WHERE timestamp >= ? AND timestamp < ?`,
		start, end)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) CostByStyle(ctx context.Context) ([]StyleCostSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT style_name, COALESCE(SUM(cost), 0), COUNT(*)
		 FROM gallery GROUP BY style_name ORDER BY style_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []StyleCostSummary
	for rows.Next() {
		var ss StyleCostSummary
		if err := rows.Scan(&ss.StyleName, &ss.TotalCost, &ss.EntryCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ss)
	}
	return summaries, rows.Err()
}
