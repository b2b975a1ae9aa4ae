package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/manash/stylestudio/pkg/models"
)

// SavePreset inserts or replaces p and returns its id.
func (s *Store) SavePreset(ctx context.Context, p models.Preset) (string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", fmt.Errorf("preset name is required")
	}
	if p.ID == "" {
		p.ID = "preset_" + uuid.New().String()
	}
	if p.AspectRatio == "" {
		p.AspectRatio = models.AspectAuto
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO presets (id, name, style_id, custom_prompt, style_influence, vibrancy, mood, aspect_ratio, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, style_id = excluded.style_id, custom_prompt = excluded.custom_prompt,
		   style_influence = excluded.style_influence, vibrancy = excluded.vibrancy,
		   mood = excluded.mood, aspect_ratio = excluded.aspect_ratio`,
		p.ID, p.Name, nullString(p.StyleID), nullString(p.CustomStylePrompt),
		p.StyleInfluence, p.Vibrancy, p.Mood, string(p.AspectRatio), s.now())
	if err != nil {
		return "", fmt.Errorf("failed to save preset: %w", err)
	}
	return p.ID, nil
}

// Presets lists presets in creation order.
func (s *Store) Presets(ctx context.Context) ([]models.Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, style_id, custom_prompt, style_influence, vibrancy, mood, aspect_ratio
		 FROM presets ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []models.Preset
	for rows.Next() {
		var p models.Preset
		var styleID, prompt sql.NullString
		var aspect string
		if err := rows.Scan(&p.ID, &p.Name, &styleID, &prompt, &p.StyleInfluence,
			&p.Vibrancy, &p.Mood, &aspect); err != nil {
			return nil, err
		}
		p.StyleID = styleID.String
		p.CustomStylePrompt = prompt.String
		p.AspectRatio = models.AspectRatio(aspect)
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (s *Store) DeletePreset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res, "preset", id)
}
