package security

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/dustin/go-humanize"
)

// MaxUploadBytes bounds images loaded into a session.
const MaxUploadBytes = 20 << 20

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrUploadTooLarge   = errors.New("image exceeds upload limit")

	uploadTypes = []string{"image/png", "image/jpeg", "image/webp"}
)

// ValidateUpload sniffs data and returns its encoding tag. File extensions
// are not trusted.
func ValidateUpload(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("%w: %s > %s", ErrUploadTooLarge,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(MaxUploadBytes))
	}

	mime := http.DetectContentType(data)
	if !slices.Contains(uploadTypes, mime) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mime)
	}
	return mime, nil
}
