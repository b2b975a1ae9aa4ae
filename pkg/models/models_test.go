package models

import (
	"errors"
	"testing"
)

func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   bool
	}{
		{FormatPNG, true},
		{FormatJPEG, true},
		{FormatWebP, true},
		{OutputFormat("gif"), false},
		{OutputFormat(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := tt.format.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want OutputFormat
	}{
		{"image/jpeg", FormatJPEG},
		{"image/jpg", FormatJPEG},
		{"image/webp", FormatWebP},
		{"image/png", FormatPNG},
		{"", FormatPNG},
	}

	for _, tt := range tests {
		if got := FormatFromMIME(tt.mime); got != tt.want {
			t.Errorf("FormatFromMIME(%q) = %v, want %v", tt.mime, got, tt.want)
		}
		if got := FormatFromMIME(tt.want.MIMEType()); got != tt.want {
			t.Errorf("FormatFromMIME(%q) = %v, want %v", tt.want.MIMEType(), got, tt.want)
		}
	}
}

func TestAspectRatio_Normalize(t *testing.T) {
	tests := []struct {
		in   AspectRatio
		want AspectRatio
	}{
		{AspectAuto, AspectSquare},
		{"", AspectSquare},
		{AspectWide, AspectWide},
		{AspectPortrait, AspectPortrait},
	}

	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseUpscaleSize(t *testing.T) {
	if got, err := ParseUpscaleSize("4K"); err != nil || got != Upscale4K {
		t.Errorf("ParseUpscaleSize(4K) = %v, %v", got, err)
	}
	if _, err := ParseUpscaleSize("8K"); !errors.Is(err, ErrInvalidUpscaleSize) {
		t.Errorf("ParseUpscaleSize(8K) error = %v, want ErrInvalidUpscaleSize", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		op   Operation
		want string
	}{
		{OpTextToImage, "imagen-4.0-generate-001"},
		{OpStylize, "gemini-2.5-flash-image"},
		{OpUpscale, "gemini-3-pro-image-preview"},
		{OpAnimate, "veo-3.1-fast-generate-preview"},
	}

	for _, tt := range tests {
		got, err := r.Model(tt.op)
		if err != nil {
			t.Fatalf("Model(%s) error = %v", tt.op, err)
		}
		if got != tt.want {
			t.Errorf("Model(%s) = %q, want %q", tt.op, got, tt.want)
		}
	}

	if len(r.List()) != 4 {
		t.Errorf("List() = %v, want 4 operations", r.List())
	}
}

func TestModelRegistry_Override(t *testing.T) {
	r := DefaultRegistry()
	r.Override(OpStylize, "gemini-custom")
	r.Override(OpUpscale, "")

	if got, _ := r.Model(OpStylize); got != "gemini-custom" {
		t.Errorf("Model(stylize) = %q, want gemini-custom", got)
	}
	if got, _ := r.Model(OpUpscale); got != "gemini-3-pro-image-preview" {
		t.Errorf("empty override changed upscale model to %q", got)
	}

	empty := NewModelRegistry()
	if _, err := empty.Model(OpAnimate); !errors.Is(err, ErrOperationNotCovered) {
		t.Errorf("Model() on empty registry error = %v, want ErrOperationNotCovered", err)
	}
}

func TestModelCapabilities_ValidateAspect(t *testing.T) {
	caps, _ := DefaultRegistry().Get(OpUpscale)

	if err := caps.ValidateAspect(AspectAuto); err != nil {
		t.Errorf("ValidateAspect(auto) error = %v", err)
	}
	if err := caps.ValidateAspect(AspectWide); !errors.Is(err, ErrInvalidAspectRatio) {
		t.Errorf("ValidateAspect(16:9) error = %v, want ErrInvalidAspectRatio", err)
	}
}

func TestAdjustments_Identity(t *testing.T) {
	id := IdentityAdjustments()
	if !id.IsIdentity() {
		t.Error("IdentityAdjustments().IsIdentity() = false")
	}
	if id.Rotated(360).IsIdentity() != true {
		t.Error("full turn should be visually identity")
	}
	if id.Rotated(90).IsIdentity() {
		t.Error("quarter turn reported as identity")
	}
}

func TestAdjustments_FlipTwice(t *testing.T) {
	a := IdentityAdjustments().FlippedHorizontal()
	if a.ScaleX != -1 {
		t.Fatalf("ScaleX = %d, want -1", a.ScaleX)
	}
	b := a.FlippedHorizontal()
	if b != IdentityAdjustments() {
		t.Errorf("flip twice = %+v, want identity", b)
	}
	if v := IdentityAdjustments().FlippedVertical(); v.ScaleY != -1 {
		t.Errorf("ScaleY = %d, want -1", v.ScaleY)
	}
}

func TestAdjustments_With(t *testing.T) {
	a, err := IdentityAdjustments().With("brightness", 130)
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if a.Brightness != 130 {
		t.Errorf("Brightness = %v, want 130", a.Brightness)
	}
	if _, err := a.With("hue", 10); err == nil {
		t.Error("With(hue) expected error")
	}
}

func TestAdjustments_Validate(t *testing.T) {
	bad := IdentityAdjustments()
	bad.ScaleX = 2
	if err := bad.Validate(); err == nil {
		t.Error("Validate() accepted scaleX=2")
	}
	if err := IdentityAdjustments().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestAdjustments_CSS(t *testing.T) {
	a := IdentityAdjustments().Rotated(90).FlippedHorizontal()
	a.Brightness = 120

	if got, want := a.CSSFilter(), "brightness(120%) contrast(100%) saturate(100%)"; got != want {
		t.Errorf("CSSFilter() = %q, want %q", got, want)
	}
	if got, want := a.CSSTransform(), "rotate(90deg) scale(-1, 1)"; got != want {
		t.Errorf("CSSTransform() = %q, want %q", got, want)
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{360, 0},
		{-90, 270},
		{450, 90},
	}
	for _, tt := range tests {
		if got := NormalizeRotation(tt.in); got != tt.want {
			t.Errorf("NormalizeRotation(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDataURI(t *testing.T) {
	img := ImageData{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}
	uri := img.DataURI()

	got, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI() error = %v", err)
	}
	if got.MIMEType != "image/png" || string(got.Data) != string(img.Data) {
		t.Errorf("ParseDataURI() = %+v, want %+v", got, img)
	}

	bad := []string{"image/png;base64,AAAA", "data:image/png;base64", "data:text/plain,hello", "data:image/png;base64,***"}
	for _, b := range bad {
		if _, err := ParseDataURI(b); !errors.Is(err, ErrInvalidDataURI) {
			t.Errorf("ParseDataURI(%q) error = %v, want ErrInvalidDataURI", b, err)
		}
	}
}
