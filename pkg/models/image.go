package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDataURI = errors.New("invalid data URI")

// ImageData is a raw encoded image plus its encoding tag.
type ImageData struct {
	Data     []byte
	MIMEType string
}

func (d ImageData) IsEmpty() bool {
	return len(d.Data) == 0
}

// DataURI renders the image as a base64 data URI.
func (d ImageData) DataURI() string {
	mime := d.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// ParseDataURI strips the data-URI prefix and decodes the payload.
func ParseDataURI(uri string) (ImageData, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ImageData{}, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ImageData{}, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return ImageData{}, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageData{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if mime == "" {
		mime = "image/png"
	}
	return ImageData{Data: data, MIMEType: mime}, nil
}

// VideoRef points at a generated video held by the remote service.
type VideoRef struct {
	URI      string
	MIMEType string
}

type GalleryEntry struct {
	ID          string
	Image       ImageData
	StyleName   string
	Prompt      string
	AspectRatio AspectRatio
	Cost        float64
	Timestamp   time.Time
}

type Preset struct {
	ID                string
	Name              string
	StyleID           string
	CustomStylePrompt string
	StyleInfluence    int
	Vibrancy          int
	Mood              int
	AspectRatio       AspectRatio
}
