package security

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		data     []byte
		wantMIME string
		wantErr  error
	}{
		{"png", buf.Bytes(), "image/png", nil},
		{"jpeg magic", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), "image/jpeg", nil},
		{"webp magic", []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), "image/webp", nil},
		{"text", []byte("hello world"), "", ErrUnsupportedImage},
		{"empty", nil, "", ErrUnsupportedImage},
		{"too large", make([]byte, MaxUploadBytes+1), "", ErrUploadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := ValidateUpload(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateUpload() error = %v, want %v", err, tt.wantErr)
			}
			if mime != tt.wantMIME {
				t.Errorf("ValidateUpload() = %q, want %q", mime, tt.wantMIME)
			}
		})
	}
}
