package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manash/stylestudio/pkg/models"
)

// testImage returns a w×h image whose pixel (x, y) has R=x*10, G=y*10.
func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 50, A: 255})
		}
	}
	return img
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		deg          float64
		wantW, wantH int
	}{
		{"zero", 40, 30, 0, 40, 30},
		{"quarter", 40, 30, 90, 30, 40},
		{"half", 40, 30, 180, 40, 30},
		{"three quarters", 40, 30, 270, 30, 40},
		{"negative quarter", 40, 30, -90, 30, 40},
		{"diagonal square", 100, 100, 45, 141, 141},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Bounds(tt.w, tt.h, tt.deg)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestRender_IdentityKeepsPixels(t *testing.T) {
	src := testImage(4, 3)
	out := Render(src, models.IdentityAdjustments())

	require.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, src.Pix, out.Pix)
}

func TestRender_DoesNotMutateSource(t *testing.T) {
	src := testImage(5, 2)
	before := append([]byte(nil), src.Pix...)

	adj := models.IdentityAdjustments().Rotated(33).FlippedVertical()
	adj.Brightness = 150
	Render(src, adj)

	assert.Equal(t, before, src.Pix)
}

func TestRender_RotateQuarter(t *testing.T) {
	src := testImage(3, 2)
	out := Render(src, models.IdentityAdjustments().Rotated(90))

	require.Equal(t, 2, out.Bounds().Dx())
	require.Equal(t, 3, out.Bounds().Dy())
	// clockwise: the bottom-left source pixel becomes the top-left one
	assert.Equal(t, src.NRGBAAt(0, 1), out.NRGBAAt(0, 0))
	assert.Equal(t, src.NRGBAAt(0, 0), out.NRGBAAt(1, 0))
	assert.Equal(t, src.NRGBAAt(2, 0), out.NRGBAAt(1, 2))
}

func TestRender_MirrorHorizontal(t *testing.T) {
	src := testImage(4, 2)
	out := Render(src, models.IdentityAdjustments().FlippedHorizontal())

	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, src.NRGBAAt(3-x, y), out.NRGBAAt(x, y))
		}
	}
}

func TestRender_MirrorTwiceIsIdentity(t *testing.T) {
	src := testImage(6, 4)
	twice := models.IdentityAdjustments().FlippedHorizontal().FlippedHorizontal()

	assert.Equal(t, Render(src, models.IdentityAdjustments()).Pix, Render(src, twice).Pix)
}

func TestRender_ColorFilters(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 200})

	tests := []struct {
		name string
		adj  func(a models.Adjustments) models.Adjustments
		want color.NRGBA
	}{
		{
			name: "brightness doubles",
			adj:  func(a models.Adjustments) models.Adjustments { a.Brightness = 200; return a },
			want: color.NRGBA{R: 200, G: 200, B: 200, A: 200},
		},
		{
			name: "brightness clamps",
			adj:  func(a models.Adjustments) models.Adjustments { a.Brightness = 400; return a },
			want: color.NRGBA{R: 255, G: 255, B: 255, A: 200},
		},
		{
			name: "zero contrast is mid grey",
			adj:  func(a models.Adjustments) models.Adjustments { a.Contrast = 0; return a },
			want: color.NRGBA{R: 128, G: 128, B: 128, A: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Render(src, tt.adj(models.IdentityAdjustments()))
			assert.Equal(t, tt.want, out.NRGBAAt(0, 0))
		})
	}
}

func TestRender_Desaturate(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	adj := models.IdentityAdjustments()
	adj.Saturation = 0
	got := Render(src, adj).NRGBAAt(0, 0)

	assert.Equal(t, got.R, got.G)
	assert.Equal(t, got.G, got.B)
	assert.InDelta(t, 54, int(got.R), 1)
}

func TestCrop(t *testing.T) {
	src := testImage(10, 8)

	out, err := Crop(src, image.Rect(2, 3, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, src.NRGBAAt(2, 3), out.NRGBAAt(0, 0))

	clamped, err := Crop(src, image.Rect(8, 6, 20, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, clamped.Bounds().Dx())

	_, err = Crop(src, image.Rect(20, 20, 30, 30))
	assert.ErrorIs(t, err, ErrEmptyCrop)
}

func TestRenderBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(5, 3)))

	out, err := RenderBytes(buf.Bytes(), models.IdentityAdjustments().Rotated(90), models.FormatPNG, 0)
	require.NoError(t, err)

	img, format, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
}

func TestEncode_JPEG(t *testing.T) {
	out, err := EncodeBytes(testImage(8, 8), models.FormatJPEG, 80)
	require.NoError(t, err)

	_, format, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := EncodeBytes(testImage(1, 1), models.OutputFormat("gif"), 0)
	assert.Error(t, err)
}

func TestCropBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(10, 10)))

	got, err := CropBytes(buf.Bytes(), image.Rect(0, 0, 4, 3))
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MIMEType)

	img, _, err := Decode(got.Data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

	_, err = CropBytes([]byte("not an image"), image.Rect(0, 0, 1, 1))
	assert.Error(t, err)
}
