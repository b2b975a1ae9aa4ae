package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/manash/stylestudio/internal/catalog"
	"github.com/manash/stylestudio/pkg/models"
)

func testStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath() error = %v", err)
	}

	cleanup := func() {
		store.Close()
	}
	return store, cleanup
}

func galleryEntry(id, style string, cost float64, ts time.Time) models.GalleryEntry {
	return models.GalleryEntry{
		ID:          id,
		Image:       models.ImageData{Data: []byte("img-" + id), MIMEType: "image/png"},
		StyleName:   style,
		Prompt:      "prompt " + id,
		AspectRatio: models.AspectAuto,
		Cost:        cost,
		Timestamp:   ts,
	}
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nested"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()
}

func TestStore_RecordAndGallery(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.Record(ctx, galleryEntry(id, "Anime", 0.04, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := store.Gallery(ctx, 0)
	if err != nil {
		t.Fatalf("Gallery() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Gallery() got %d entries, want 3", len(entries))
	}
	if entries[0].ID != "c" || entries[2].ID != "a" {
		t.Errorf("Gallery() order = %s,%s,%s, want newest first", entries[0].ID, entries[1].ID, entries[2].ID)
	}
	if entries[0].AspectRatio != models.AspectSquare {
		t.Errorf("Gallery() aspect = %v, want 1:1", entries[0].AspectRatio)
	}
	if string(entries[0].Image.Data) != "img-c" || entries[0].Image.MIMEType != "image/png" {
		t.Errorf("Gallery() image = %q %q", entries[0].Image.Data, entries[0].Image.MIMEType)
	}

	limited, err := store.Gallery(ctx, 2)
	if err != nil {
		t.Fatalf("Gallery() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Gallery(2) got %d entries, want 2", len(limited))
	}
}

func TestStore_RecordFillsDefaults(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	fixed := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	e := galleryEntry("", "Oil", 0, time.Time{})
	if err := store.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	entries, _ := store.Gallery(ctx, 0)
	if len(entries) != 1 || entries[0].ID == "" {
		t.Fatalf("Record() did not assign an id: %+v", entries)
	}
	if !entries[0].Timestamp.Equal(fixed) {
		t.Errorf("Record() timestamp = %v, want %v", entries[0].Timestamp, fixed)
	}

	if err := store.Record(ctx, models.GalleryEntry{}); !errors.Is(err, models.ErrNoImageData) {
		t.Errorf("Record() empty image error = %v, want ErrNoImageData", err)
	}
}

func TestStore_DeleteAndClearGallery(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now()

	store.Record(ctx, galleryEntry("a", "Anime", 0.04, now))
	store.Record(ctx, galleryEntry("b", "Anime", 0.04, now))

	if err := store.DeleteGalleryEntry(ctx, "a"); err != nil {
		t.Fatalf("DeleteGalleryEntry() error = %v", err)
	}
	if err := store.DeleteGalleryEntry(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteGalleryEntry() twice error = %v, want ErrNotFound", err)
	}
	if _, err := store.GalleryEntry(ctx, "b"); err != nil {
		t.Errorf("GalleryEntry() error = %v", err)
	}
	if _, err := store.GalleryEntry(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GalleryEntry() deleted error = %v, want ErrNotFound", err)
	}

	if err := store.ClearGallery(ctx); err != nil {
		t.Fatalf("ClearGallery() error = %v", err)
	}
	entries, _ := store.Gallery(ctx, 0)
	if len(entries) != 0 {
		t.Errorf("Gallery() after clear got %d entries", len(entries))
	}
}

func TestStore_Costs(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Record(ctx, galleryEntry("a", "Anime", 0.04, day.Add(time.Hour)))
	store.Record(ctx, galleryEntry("b", "Anime", 0.04, day.Add(2*time.Hour)))
	store.Record(ctx, galleryEntry("c", "Oil", 0.24, day.Add(48*time.Hour)))

	total, err := store.TotalCost(ctx)
	if err != nil {
		t.Fatalf("TotalCost() error = %v", err)
	}
	if total.EntryCount != 3 || total.TotalCost < 0.3199 || total.TotalCost > 0.3201 {
		t.Errorf("TotalCost() = %+v, want 3 entries, 0.32", total)
	}

	ranged, err := store.CostByDateRange(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("CostByDateRange() error = %v", err)
	}
	if ranged.EntryCount != 2 {
		t.Errorf("CostByDateRange() entries = %d, want 2", ranged.EntryCount)
	}

	byStyle, err := store.CostByStyle(ctx)
	if err != nil {
		t.Fatalf("CostByStyle() error = %v", err)
	}
	if len(byStyle) != 2 || byStyle[0].StyleName != "Anime" || byStyle[0].EntryCount != 2 {
		t.Errorf("CostByStyle() = %+v", byStyle)
	}
}

func TestStore_Presets(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.SavePreset(ctx, models.Preset{Name: "Moody anime", StyleID: "anime", Vibrancy: 30, Mood: -40})
	if err != nil {
		t.Fatalf("SavePreset() error = %v", err)
	}
	if _, err := store.SavePreset(ctx, models.Preset{Name: "Custom", CustomStylePrompt: "neon", AspectRatio: models.AspectWide}); err != nil {
		t.Fatalf("SavePreset() error = %v", err)
	}
	if _, err := store.SavePreset(ctx, models.Preset{Name: " "}); err == nil {
		t.Error("SavePreset() expected error for empty name")
	}

	presets, err := store.Presets(ctx)
	if err != nil {
		t.Fatalf("Presets() error = %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("Presets() got %d, want 2", len(presets))
	}
	p := presets[0]
	if p.ID != id || p.StyleID != "anime" || p.Vibrancy != 30 || p.Mood != -40 || p.AspectRatio != models.AspectAuto {
		t.Errorf("Presets()[0] = %+v", p)
	}
	if presets[1].CustomStylePrompt != "neon" || presets[1].StyleID != "" {
		t.Errorf("Presets()[1] = %+v", presets[1])
	}

	p.Name = "Renamed"
	if _, err := store.SavePreset(ctx, p); err != nil {
		t.Fatalf("SavePreset() update error = %v", err)
	}
	presets, _ = store.Presets(ctx)
	if len(presets) != 2 || presets[0].Name != "Renamed" {
		t.Errorf("SavePreset() update = %+v", presets)
	}

	if err := store.DeletePreset(ctx, id); err != nil {
		t.Fatalf("DeletePreset() error = %v", err)
	}
	if err := store.DeletePreset(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePreset() twice error = %v, want ErrNotFound", err)
	}
}

func TestStore_Styles(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	styles := []catalog.Style{
		{ID: "custom_style_2", Label: "Second", Prompt: "p2", Custom: true, ReferenceImage: "data:image/png;base64,AA=="},
		{ID: "anime", Deleted: true, Rating: 3},
	}
	if err := store.SaveStyles(ctx, styles); err != nil {
		t.Fatalf("SaveStyles() error = %v", err)
	}
	if err := store.SaveStyle(ctx, catalog.Style{ID: "custom_style_2", Label: "Second!", Prompt: "p2", Custom: true, Favorite: true}); err != nil {
		t.Fatalf("SaveStyle() error = %v", err)
	}

	got, err := store.Styles(ctx)
	if err != nil {
		t.Fatalf("Styles() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Styles() got %d, want 2", len(got))
	}
	if got[0].ID != "custom_style_2" || got[0].Label != "Second!" || !got[0].Favorite || !got[0].Custom {
		t.Errorf("Styles()[0] = %+v", got[0])
	}
	if got[0].ReferenceImage != "" {
		t.Errorf("Styles()[0] reference = %q, want cleared by update", got[0].ReferenceImage)
	}
	if got[1].ID != "anime" || !got[1].Deleted || got[1].Rating != 3 || got[1].Label != "" {
		t.Errorf("Styles()[1] = %+v", got[1])
	}
}

func TestStore_Folders(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveFolder(ctx, catalog.Folder{ID: "fld_mine", Name: "CỦA TÔI", NameEN: "MINE"}); err != nil {
		t.Fatalf("SaveFolder() error = %v", err)
	}
	if err := store.SaveStyle(ctx, catalog.Style{ID: "anime", FolderID: "fld_mine"}); err != nil {
		t.Fatalf("SaveStyle() error = %v", err)
	}

	folders, err := store.Folders(ctx)
	if err != nil {
		t.Fatalf("Folders() error = %v", err)
	}
	if len(folders) != 1 || folders[0].NameEN != "MINE" {
		t.Errorf("Folders() = %+v", folders)
	}

	if err := store.DeleteFolder(ctx, "fld_mine"); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	styles, _ := store.Styles(ctx)
	if styles[0].FolderID != "" {
		t.Errorf("DeleteFolder() left style in folder %q", styles[0].FolderID)
	}
	if err := store.DeleteFolder(ctx, "fld_mine"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteFolder() twice error = %v, want ErrNotFound", err)
	}
}

func TestStore_LoadCatalog(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	store.SaveStyle(ctx, catalog.Style{ID: "anime", Deleted: true})
	store.SaveStyle(ctx, catalog.Style{ID: "custom_style_1", Label: "Mine", Prompt: "mine", Custom: true})
	store.SaveFolder(ctx, catalog.Folder{ID: "fld_mine", Name: "Mine"})

	cat, folders, err := store.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	anime, ok := cat.Lookup("anime")
	if !ok || !anime.Deleted || anime.Prompt == "" {
		t.Errorf("LoadCatalog() anime = %+v", anime)
	}
	if _, ok := cat.Lookup("custom_style_1"); !ok {
		t.Error("LoadCatalog() missing custom style")
	}
	if len(cat.Styles()) != 30 {
		t.Errorf("LoadCatalog() got %d styles, want 30", len(cat.Styles()))
	}
	if len(folders) != 12 || folders[11].ID != "fld_mine" {
		t.Errorf("LoadCatalog() folders = %d", len(folders))
	}
}
