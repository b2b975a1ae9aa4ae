// Package compositor rasterizes adjustment snapshots onto source images.
// Render is pure: it allocates a new canvas and never writes to its input.
package compositor

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/manash/stylestudio/pkg/models"
)

var ErrEmptyCrop = errors.New("crop rectangle is empty")

// Bounds returns the canvas size that holds a w×h image rotated by deg
// without clipping any corner.
func Bounds(w, h int, deg float64) (int, int) {
	theta := deg * math.Pi / 180
	cos := math.Abs(math.Cos(theta))
	sin := math.Abs(math.Sin(theta))
	nw := int(math.Round(cos*float64(w) + sin*float64(h)))
	nh := int(math.Round(sin*float64(w) + cos*float64(h)))
	return nw, nh
}

// Render draws src onto a fresh canvas: translate to center, rotate, mirror,
// then the brightness, contrast and saturate filters in that order.
func Render(src image.Image, adj models.Adjustments) *image.NRGBA {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	nw, nh := Bounds(w, h, adj.Rotation)
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	if w == 0 || h == 0 || nw == 0 || nh == 0 {
		return dst
	}

	f := newFilter(adj)
	theta := adj.Rotation * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	sx, sy := float64(scaleOf(adj.ScaleX)), float64(scaleOf(adj.ScaleY))
	halfW, halfH := float64(w)/2, float64(h)/2
	halfNW, halfNH := float64(nw)/2, float64(nh)/2

	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			// inverse of rotate(theta) then scale(sx, sy)
			dx := float64(x) + 0.5 - halfNW
			dy := float64(y) + 0.5 - halfNH
			rx := cos*dx + sin*dy
			ry := -sin*dx + cos*dy
			px := int(math.Floor(rx/sx + halfW))
			py := int(math.Floor(ry/sy + halfH))
			if px < 0 || py < 0 || px >= w || py >= h {
				continue
			}
			c := color.NRGBAModel.Convert(src.At(sb.Min.X+px, sb.Min.Y+py)).(color.NRGBA)
			dst.SetNRGBA(x, y, f.apply(c))
		}
	}
	return dst
}

// Crop copies the part of src inside r into a new image. r is clamped to the
// source bounds.
func Crop(src image.Image, r image.Rectangle) (*image.NRGBA, error) {
	r = r.Intersect(src.Bounds())
	if r.Empty() {
		return nil, ErrEmptyCrop
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Set(x-r.Min.X, y-r.Min.Y, src.At(x, y))
		}
	}
	return dst, nil
}

func scaleOf(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

type filter struct {
	brightness float64
	contrast   float64
	saturate   bool
	matrix     [3][3]float64
}

func newFilter(adj models.Adjustments) filter {
	b, c, s := adj.Brightness/100, adj.Contrast/100, adj.Saturation/100
	return filter{
		brightness: b,
		contrast:   c,
		saturate:   s != 1,
		matrix: [3][3]float64{
			{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
			{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
			{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
		},
	}
}

func (f filter) identity() bool {
	return f.brightness == 1 && f.contrast == 1 && !f.saturate
}

func (f filter) apply(c color.NRGBA) color.NRGBA {
	if f.identity() {
		return c
	}
	rgb := [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
	for i := range rgb {
		if f.brightness != 1 {
			rgb[i] = clamp01(rgb[i] * f.brightness)
		}
		if f.contrast != 1 {
			rgb[i] = clamp01((rgb[i]-0.5)*f.contrast + 0.5)
		}
	}
	if f.saturate {
		var out [3]float64
		for i := range out {
			out[i] = clamp01(f.matrix[i][0]*rgb[0] + f.matrix[i][1]*rgb[1] + f.matrix[i][2]*rgb[2])
		}
		rgb = out
	}
	return color.NRGBA{R: to8(rgb[0]), G: to8(rgb[1]), B: to8(rgb[2]), A: c.A}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
