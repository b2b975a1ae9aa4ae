package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrAbsolutePath  = errors.New("absolute paths are not allowed")
	ErrReservedName  = errors.New("reserved filename not allowed")
	ErrLeadingHyphen = errors.New("filename cannot start with hyphen")

	windowsReservedNames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
		"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}
)

// ValidateSavePath checks an export path given relative to the output
// directory.
func ValidateSavePath(path string) error {
	if filepath.IsAbs(path) {
		return ErrAbsolutePath
	}

	cleaned := filepath.Clean(path)
	if strings.HasPrefix(cleaned, "..") || strings.Contains(path, "..") {
		return ErrPathTraversal
	}

	base := filepath.Base(cleaned)
	nameWithoutExt := strings.TrimSuffix(strings.ToLower(base), filepath.Ext(base))
	if windowsReservedNames[nameWithoutExt] {
		return ErrReservedName
	}
	if strings.HasPrefix(base, "-") {
		return ErrLeadingHyphen
	}
	return nil
}

// ResolveExportPath validates name and joins it onto outputDir. An empty
// outputDir leaves the name relative to the working directory.
func ResolveExportPath(outputDir, name string) (string, error) {
	if err := ValidateSavePath(name); err != nil {
		return "", fmt.Errorf("invalid export path %q: %w", name, err)
	}
	if outputDir == "" {
		return filepath.Clean(name), nil
	}
	return filepath.Join(outputDir, name), nil
}

// SanitizeFilename turns a session or style name into a safe file stem.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "",
		"<", "", ">", "", "|", "", "\x00", "",
	)
	sanitized := replacer.Replace(name)
	sanitized = strings.TrimLeft(sanitized, ".-")
	sanitized = strings.TrimRight(sanitized, ". ")

	nameWithoutExt := strings.TrimSuffix(strings.ToLower(sanitized), filepath.Ext(sanitized))
	if windowsReservedNames[nameWithoutExt] {
		sanitized = sanitized + "_"
	}

	if sanitized == "" {
		sanitized = "image"
	}
	return sanitized
}
