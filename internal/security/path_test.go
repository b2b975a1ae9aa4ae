package security

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestValidateSavePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"simple filename", "portrait-anime.png", nil},
		{"subdirectory", "exports/portrait.webp", nil},
		{"parent traversal", "../portrait.png", ErrPathTraversal},
		{"traversal in middle", "exports/../../../etc/passwd", ErrPathTraversal},
		{"absolute path", "/etc/passwd", ErrAbsolutePath},
		{"reserved CON", "CON.png", ErrReservedName},
		{"reserved lpt1", "lpt1.jpeg", ErrReservedName},
		{"reserved without extension", "nul", ErrReservedName},
		{"leading hyphen", "-rf.png", ErrLeadingHyphen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSavePath(tt.path)
			if err != tt.wantErr {
				t.Errorf("ValidateSavePath(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestResolveExportPath(t *testing.T) {
	got, err := ResolveExportPath("out", "a/b.png")
	if err != nil {
		t.Fatalf("ResolveExportPath() error = %v", err)
	}
	if want := filepath.Join("out", "a", "b.png"); got != want {
		t.Errorf("ResolveExportPath() = %q, want %q", got, want)
	}

	got, err = ResolveExportPath("", "./b.png")
	if err != nil || got != "b.png" {
		t.Errorf("ResolveExportPath(\"\") = %q, %v", got, err)
	}

	if _, err := ResolveExportPath("out", "../b.png"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("ResolveExportPath() error = %v, want ErrPathTraversal", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal", "portrait.png", "portrait.png"},
		{"slashes", "foo/bar", "foo-bar"},
		{"backslashes", "foo\\bar", "foo-bar"},
		{"leading dots", "..hidden", "hidden"},
		{"leading hyphens", "--flag", "flag"},
		{"trailing dots", "photo...", "photo"},
		{"special characters", "Cyber<punk>: *neon?", "Cyberpunk- neon"},
		{"unicode kept", "Tranh sơn dầu", "Tranh sơn dầu"},
		{"reserved name", "CON", "CON_"},
		{"empty", "...", "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
