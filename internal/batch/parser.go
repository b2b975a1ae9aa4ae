package batch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoStyles = errors.New("no styles found in file")

// Item is one entry of a style list: a catalog id and an optional per-item
// modifier.
type Item struct {
	Index    int
	StyleID  string
	Modifier string
}

type jsonItem struct {
	Style    string `json:"style"`
	Modifier string `json:"modifier,omitempty"`
}

func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
}

// ParseText reads one style per line. Anything after the first space is the
// modifier. Blank lines and lines starting with # are skipped.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		style, modifier, _ := strings.Cut(line, " ")
		index++
		items = append(items, Item{
			Index:    index,
			StyleID:  style,
			Modifier: strings.TrimSpace(modifier),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrNoStyles
	}

	return items, nil
}

func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jsonItems []jsonItem
	if err := json.Unmarshal(data, &jsonItems); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(jsonItems) == 0 {
		return nil, ErrNoStyles
	}

	items := make([]Item, len(jsonItems))
	for i, ji := range jsonItems {
		if strings.TrimSpace(ji.Style) == "" {
			return nil, fmt.Errorf("item %d has empty style", i+1)
		}
		items[i] = Item{
			Index:    i + 1,
			StyleID:  strings.TrimSpace(ji.Style),
			Modifier: strings.TrimSpace(ji.Modifier),
		}
	}

	return items, nil
}

// StyleIDs returns the ids in file order.
func StyleIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.StyleID
	}
	return ids
}
