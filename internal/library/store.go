// Package library persists the gallery, presets and catalog state.
package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS gallery (
    id TEXT PRIMARY KEY,
    image BLOB NOT NULL,
    mime_type TEXT NOT NULL,
    style_name TEXT NOT NULL,
    prompt TEXT NOT NULL,
    aspect_ratio TEXT NOT NULL DEFAULT '1:1',
    cost REAL NOT NULL DEFAULT 0,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS presets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    style_id TEXT,
    custom_prompt TEXT,
    style_influence INTEGER NOT NULL DEFAULT 0,
    vibrancy INTEGER NOT NULL DEFAULT 0,
    mood INTEGER NOT NULL DEFAULT 0,
    aspect_ratio TEXT NOT NULL DEFAULT 'auto',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS styles (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    label TEXT,
    label_vi TEXT,
    prompt TEXT,
    prompt_vi TEXT,
    thumbnail TEXT,
    folder_id TEXT,
    reference_image TEXT,
    rating INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    favorite INTEGER NOT NULL DEFAULT 0,
    custom INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    name_en TEXT
);

CREATE INDEX IF NOT EXISTS idx_gallery_timestamp ON gallery(timestamp);
CREATE INDEX IF NOT EXISTS idx_styles_folder_id ON styles(folder_id);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DBFileName is the library database file inside the data directory.
const DBFileName = "library.db"

func DBPath(dir string) string {
	return filepath.Join(dir, DBFileName)
}

// NewStore opens the library under dir, creating it when missing.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithPath(DBPath(dir))
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func checkAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
