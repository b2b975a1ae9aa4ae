package library

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/manash/stylestudio/internal/catalog"
)

const upsertStyle = `INSERT INTO styles (id, position, label, label_vi, prompt, prompt_vi, thumbnail, folder_id,
	reference_image, rating, deleted, favorite, custom, updated_at)
 VALUES (?, COALESCE((SELECT position FROM styles WHERE id = ?), (SELECT COALESCE(MAX(position), 0) + 1 FROM styles)),
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
 ON CONFLICT(id) DO UPDATE SET
   label = excluded.label, label_vi = excluded.label_vi, prompt = excluded.prompt,
   prompt_vi = excluded.prompt_vi, thumbnail = excluded.thumbnail, folder_id = excluded.folder_id,
   reference_image = excluded.reference_image, rating = excluded.rating, deleted = excluded.deleted,
   favorite = excluded.favorite, custom = excluded.custom, updated_at = excluded.updated_at`

// SaveStyle persists the user-visible state of one style. Positions are
// assigned on first save so custom styles reload in creation order.
func (s *Store) SaveStyle(ctx context.Context, st catalog.Style) error {
	return s.saveStyle(ctx, s.db, st)
}

func (s *Store) SaveStyles(ctx context.Context, styles []catalog.Style) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, st := range styles {
		if err := s.saveStyle(ctx, tx, st); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) saveStyle(ctx context.Context, db execer, st catalog.Style) error {
	_, err := db.ExecContext(ctx, upsertStyle,
		st.ID, st.ID, nullString(st.Label), nullString(st.LabelVI), nullString(st.Prompt),
		nullString(st.PromptVI), nullString(st.Thumbnail), nullString(st.FolderID),
		nullString(st.ReferenceImage), st.Rating, st.Deleted, st.Favorite, st.Custom, s.now())
	if err != nil {
		return fmt.Errorf("failed to save style %s: %w", st.ID, err)
	}
	return nil
}

// Styles returns persisted styles in first-saved order, ready for
// catalog.Reconcile.
func (s *Store) Styles(ctx context.Context) ([]catalog.Style, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, label_vi, prompt, prompt_vi, thumbnail, folder_id, reference_image,
		        rating, deleted, favorite, custom
		 FROM styles ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var styles []catalog.Style
	for rows.Next() {
		var st catalog.Style
		var label, labelVI, prompt, promptVI, thumb, folder, ref sql.NullString
		if err := rows.Scan(&st.ID, &label, &labelVI, &prompt, &promptVI, &thumb, &folder, &ref,
			&st.Rating, &st.Deleted, &st.Favorite, &st.Custom); err != nil {
			return nil, err
		}
		st.Label = label.String
		st.LabelVI = labelVI.String
		st.Prompt = prompt.String
		st.PromptVI = promptVI.String
		st.Thumbnail = thumb.String
		st.FolderID = folder.String
		st.ReferenceImage = ref.String
		styles = append(styles, st)
	}
	return styles, rows.Err()
}

func (s *Store) SaveFolder(ctx context.Context, f catalog.Folder) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO folders (id, position, name, name_en)
		 VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM folders), ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, name_en = excluded.name_en`,
		f.ID, f.Name, nullString(f.NameEN))
	if err != nil {
		return fmt.Errorf("failed to save folder: %w", err)
	}
	return nil
}

func (s *Store) Folders(ctx context.Context) ([]catalog.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, name_en FROM folders ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []catalog.Folder
	for rows.Next() {
		var f catalog.Folder
		var nameEN sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &nameEN); err != nil {
			return nil, err
		}
		f.NameEN = nameEN.String
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// DeleteFolder removes the folder and detaches any persisted style from it.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE styles SET folder_id = NULL WHERE folder_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach styles: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkAffected(res, "folder", id); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadCatalog reconciles persisted state with the built-in catalog.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, []catalog.Folder, error) {
	defaults, defaultFolders, err := catalog.Defaults()
	if err != nil {
		return nil, nil, err
	}
	persisted, err := s.Styles(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load styles: %w", err)
	}
	folders, err := s.Folders(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load folders: %w", err)
	}
	return catalog.New(catalog.Reconcile(defaults, persisted)), catalog.ReconcileFolders(defaultFolders, folders), nil
}
