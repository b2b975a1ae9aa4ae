package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	_ "github.com/kolesa-team/go-webp/decoder" // registers the webp format with image.Decode
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/manash/stylestudio/pkg/models"
)

const DefaultQuality = 90

func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Encode writes img in the requested format. quality applies to jpeg and
// webp; values outside 1..100 fall back to DefaultQuality.
func Encode(w io.Writer, img image.Image, format models.OutputFormat, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	switch format {
	case models.FormatPNG, "":
		return png.Encode(w, img)
	case models.FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case models.FormatWebP:
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return fmt.Errorf("failed to create webp encoder options: %w", err)
		}
		if err := webp.Encode(w, img, options); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func EncodeBytes(img image.Image, format models.OutputFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderBytes decodes data, applies adj and re-encodes. It is the export path:
// the committed snapshot is rasterized once over the selected content entry.
func RenderBytes(data []byte, adj models.Adjustments, format models.OutputFormat, quality int) ([]byte, error) {
	src, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeBytes(Render(src, adj), format, quality)
}

// CropBytes decodes data, crops it to r and encodes the result as png.
func CropBytes(data []byte, r image.Rectangle) (models.ImageData, error) {
	src, _, err := Decode(data)
	if err != nil {
		return models.ImageData{}, err
	}
	cropped, err := Crop(src, r)
	if err != nil {
		return models.ImageData{}, err
	}
	out, err := EncodeBytes(cropped, models.FormatPNG, 0)
	if err != nil {
		return models.ImageData{}, err
	}
	return models.ImageData{Data: out, MIMEType: models.FormatPNG.MIMEType()}, nil
}
