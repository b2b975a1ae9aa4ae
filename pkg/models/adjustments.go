package models

import (
	"fmt"
	"math"
)

// Adjustments is one snapshot of the local pixel edits applied on top of a
// content entry. Percentages are centered at 100.
type Adjustments struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Rotation   float64 `json:"rotation"`
	ScaleX     int     `json:"scaleX"`
	ScaleY     int     `json:"scaleY"`
}

func IdentityAdjustments() Adjustments {
	return Adjustments{
		Brightness: 100,
		Contrast:   100,
		Saturation: 100,
		ScaleX:     1,
		ScaleY:     1,
	}
}

func (a Adjustments) IsIdentity() bool {
	return a.Visual() == IdentityAdjustments()
}

// Visual returns the snapshot with rotation folded into [0, 360), which is
// the form two snapshots with the same on-screen effect share.
func (a Adjustments) Visual() Adjustments {
	a.Rotation = NormalizeRotation(a.Rotation)
	return a
}

func (a Adjustments) Rotated(deg float64) Adjustments {
	a.Rotation += deg
	return a
}

func (a Adjustments) FlippedHorizontal() Adjustments {
	a.ScaleX = -a.scaleX()
	return a
}

func (a Adjustments) FlippedVertical() Adjustments {
	a.ScaleY = -a.scaleY()
	return a
}

// With returns a copy with the named slider set. Names: brightness, contrast,
// saturation, rotation.
func (a Adjustments) With(name string, value float64) (Adjustments, error) {
	switch name {
	case "brightness":
		a.Brightness = value
	case "contrast":
		a.Contrast = value
	case "saturation":
		a.Saturation = value
	case "rotation":
		a.Rotation = value
	default:
		return a, fmt.Errorf("unknown adjustment %q", name)
	}
	return a, nil
}

func (a Adjustments) Validate() error {
	if a.ScaleX != 1 && a.ScaleX != -1 {
		return fmt.Errorf("scaleX must be 1 or -1, got %d", a.ScaleX)
	}
	if a.ScaleY != 1 && a.ScaleY != -1 {
		return fmt.Errorf("scaleY must be 1 or -1, got %d", a.ScaleY)
	}
	if a.Brightness < 0 || a.Contrast < 0 || a.Saturation < 0 {
		return fmt.Errorf("percentages cannot be negative")
	}
	return nil
}

// CSSFilter is the display-layer filter equivalent of the colour pass.
func (a Adjustments) CSSFilter() string {
	return fmt.Sprintf("brightness(%g%%) contrast(%g%%) saturate(%g%%)", a.Brightness, a.Contrast, a.Saturation)
}

// CSSTransform is the display-layer transform equivalent of the geometry pass.
func (a Adjustments) CSSTransform() string {
	return fmt.Sprintf("rotate(%gdeg) scale(%d, %d)", a.Rotation, a.scaleX(), a.scaleY())
}

func (a Adjustments) scaleX() int {
	if a.ScaleX == 0 {
		return 1
	}
	return a.ScaleX
}

func (a Adjustments) scaleY() int {
	if a.ScaleY == 0 {
		return 1
	}
	return a.ScaleY
}

func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}
