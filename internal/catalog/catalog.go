// Package catalog holds the art style catalog and its folders.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var (
	ErrStyleNotFound  = errors.New("style not found")
	ErrDuplicateStyle = errors.New("style already exists")
	ErrInvalidRating  = errors.New("rating must be between 0 and 5")
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Style struct {
	ID             string `yaml:"id"`
	Label          string `yaml:"label"`
	LabelVI        string `yaml:"label_vi,omitempty"`
	Prompt         string `yaml:"prompt"`
	PromptVI       string `yaml:"prompt_vi,omitempty"`
	Thumbnail      string `yaml:"thumbnail,omitempty"`
	FolderID       string `yaml:"folder_id,omitempty"`
	ReferenceImage string `yaml:"-"`
	Rating         int    `yaml:"-"`
	Deleted        bool   `yaml:"-"`
	Favorite       bool   `yaml:"-"`
	Custom         bool   `yaml:"-"`
}

func (s Style) LocalizedLabel(lang language.Tag) string {
	if IsVietnamese(lang) && s.LabelVI != "" {
		return s.LabelVI
	}
	return s.Label
}

func (s Style) LocalizedPrompt(lang language.Tag) string {
	if IsVietnamese(lang) && s.PromptVI != "" {
		return s.PromptVI
	}
	return s.Prompt
}

type Folder struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	NameEN string `yaml:"name_en,omitempty"`
}

func (f Folder) LocalizedName(lang language.Tag) string {
	if !IsVietnamese(lang) && f.NameEN != "" {
		return f.NameEN
	}
	return f.Name
}

type defaultsFile struct {
	Folders []Folder `yaml:"folders"`
	Styles  []Style  `yaml:"styles"`
}

// Defaults returns the built-in styles and folders.
func Defaults() ([]Style, []Folder, error) {
	var f defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &f); err != nil {
		return nil, nil, fmt.Errorf("failed to parse built-in catalog: %w", err)
	}
	return f.Styles, f.Folders, nil
}

var supported = []language.Tag{language.English, language.Vietnamese}

var matcher = language.NewMatcher(supported)

// ParseLanguage matches s against the supported languages, falling back to
// English.
func ParseLanguage(s string) language.Tag {
	tag, _ := language.MatchStrings(matcher, s)
	base, _ := tag.Base()
	if base.String() == "vi" {
		return language.Vietnamese
	}
	return language.English
}

func IsVietnamese(lang language.Tag) bool {
	base, _ := lang.Base()
	return base.String() == "vi"
}

// Catalog is the reconciled, mutable style list.
type Catalog struct {
	mu     sync.RWMutex
	styles []Style
}

func New(styles []Style) *Catalog {
	cp := make([]Style, len(styles))
	copy(cp, styles)
	return &Catalog{styles: cp}
}

func (c *Catalog) Lookup(id string) (Style, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.styles {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

func (c *Catalog) Styles() []Style {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Style, len(c.styles))
	copy(out, c.styles)
	return out
}

// Visible returns styles that are not soft-deleted and whose localized label
// or prompt contains query, compared case-insensitively.
func (c *Catalog) Visible(lang language.Tag, query string) []Style {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Style
	for _, s := range c.styles {
		if s.Deleted {
			continue
		}
		if q != "" &&
			!strings.Contains(fold.String(s.LocalizedLabel(lang)), q) &&
			!strings.Contains(fold.String(s.LocalizedPrompt(lang)), q) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// InFolder returns visible styles assigned to folderID; an empty id selects
// styles without a folder.
func (c *Catalog) InFolder(folderID string) []Style {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Style
	for _, s := range c.styles {
		if !s.Deleted && s.FolderID == folderID {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) Add(s Style) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.styles {
		if existing.ID == s.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateStyle, s.ID)
		}
	}
	c.styles = append(c.styles, s)
	return nil
}

// Update applies fn to the style with the given id and returns the result.
func (c *Catalog) Update(id string, fn func(*Style)) (Style, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.styles {
		if c.styles[i].ID == id {
			fn(&c.styles[i])
			return c.styles[i], nil
		}
	}
	return Style{}, fmt.Errorf("%w: %s", ErrStyleNotFound, id)
}

func (c *Catalog) SoftDelete(id string) (Style, error) {
	return c.Update(id, func(s *Style) { s.Deleted = true })
}

func (c *Catalog) Restore(id string) (Style, error) {
	return c.Update(id, func(s *Style) { s.Deleted = false })
}

func (c *Catalog) Rate(id string, rating int) (Style, error) {
	if rating < 0 || rating > 5 {
		return Style{}, ErrInvalidRating
	}
	return c.Update(id, func(s *Style) { s.Rating = rating })
}

func (c *Catalog) ToggleFavorite(id string) (Style, error) {
	return c.Update(id, func(s *Style) { s.Favorite = !s.Favorite })
}

func (c *Catalog) Move(id, folderID string) (Style, error) {
	return c.Update(id, func(s *Style) { s.FolderID = folderID })
}

// ClearFolder detaches every style from folderID and returns the changed styles.
func (c *Catalog) ClearFolder(folderID string) []Style {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changed []Style
	for i := range c.styles {
		if c.styles[i].FolderID == folderID {
			c.styles[i].FolderID = ""
			changed = append(changed, c.styles[i])
		}
	}
	return changed
}
