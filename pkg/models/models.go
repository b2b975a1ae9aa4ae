package models

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	ErrEmptyPrompt         = errors.New("prompt cannot be empty")
	ErrInvalidAspectRatio  = errors.New("invalid aspect ratio for model")
	ErrInvalidUpscaleSize  = errors.New("invalid upscale size")
	ErrNoImageData         = errors.New("image data is required")
	ErrOperationNotCovered = errors.New("no model registered for operation")
)

type OutputFormat string

const (
	FormatPNG  OutputFormat = "png"
	FormatJPEG OutputFormat = "jpeg"
	FormatWebP OutputFormat = "webp"
)

func ValidFormats() []OutputFormat {
	return []OutputFormat{FormatPNG, FormatJPEG, FormatWebP}
}

func (f OutputFormat) IsValid() bool {
	return slices.Contains(ValidFormats(), f)
}

func (f OutputFormat) String() string {
	return string(f)
}

// MIMEType returns the encoding tag used for content entries of this format.
func (f OutputFormat) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// FormatFromMIME maps an encoding tag back to an output format, defaulting to png.
func FormatFromMIME(mimeType string) OutputFormat {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/webp":
		return FormatWebP
	default:
		return FormatPNG
	}
}

type AspectRatio string

const (
	AspectAuto      AspectRatio = "auto"
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "3:4"
	AspectLandscape AspectRatio = "4:3"
	AspectTall      AspectRatio = "9:16"
	AspectWide      AspectRatio = "16:9"
)

func ValidAspectRatios() []AspectRatio {
	return []AspectRatio{AspectAuto, AspectSquare, AspectPortrait, AspectLandscape, AspectTall, AspectWide}
}

func (a AspectRatio) IsValid() bool {
	return slices.Contains(ValidAspectRatios(), a)
}

// Normalize maps "auto" and the empty value to the square ratio the remote
// service expects.
func (a AspectRatio) Normalize() AspectRatio {
	if a == "" || a == AspectAuto {
		return AspectSquare
	}
	return a
}

func (a AspectRatio) String() string {
	return string(a)
}

type UpscaleSize string

const (
	Upscale2K UpscaleSize = "2K"
	Upscale4K UpscaleSize = "4K"
)

func ParseUpscaleSize(s string) (UpscaleSize, error) {
	switch UpscaleSize(s) {
	case Upscale2K, Upscale4K:
		return UpscaleSize(s), nil
	}
	return "", fmt.Errorf("%w: %q (use 2K or 4K)", ErrInvalidUpscaleSize, s)
}

// Operation identifies one of the remote generation primitives.
type Operation string

const (
	OpTextToImage Operation = "text-to-image"
	OpStylize     Operation = "stylize"
	OpUpscale     Operation = "upscale"
	OpAnimate     Operation = "animate"
)

type ModelCapabilities struct {
	Name         string
	Operation    Operation
	AspectRatios []AspectRatio
	OutputMIME   string
	ImageSizes   []UpscaleSize
}

func (c *ModelCapabilities) ValidateAspect(a AspectRatio) error {
	a = a.Normalize()
	if len(c.AspectRatios) > 0 && !slices.Contains(c.AspectRatios, a) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidAspectRatio, a, c.AspectRatios)
	}
	return nil
}

type ModelRegistry struct {
	byOp map[Operation]ModelCapabilities
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{byOp: make(map[Operation]ModelCapabilities)}
}

func (r *ModelRegistry) Register(caps ModelCapabilities) {
	r.byOp[caps.Operation] = caps
}

func (r *ModelRegistry) Get(op Operation) (ModelCapabilities, bool) {
	caps, ok := r.byOp[op]
	return caps, ok
}

// Model returns the model name registered for op.
func (r *ModelRegistry) Model(op Operation) (string, error) {
	caps, ok := r.byOp[op]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOperationNotCovered, op)
	}
	return caps.Name, nil
}

// Override replaces the model name for op, keeping its capabilities.
func (r *ModelRegistry) Override(op Operation, model string) {
	if model == "" {
		return
	}
	caps := r.byOp[op]
	caps.Operation = op
	caps.Name = model
	r.byOp[op] = caps
}

func (r *ModelRegistry) List() []Operation {
	ops := make([]Operation, 0, len(r.byOp))
	for op := range r.byOp {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()
	imageRatios := []AspectRatio{AspectSquare, AspectPortrait, AspectLandscape, AspectTall, AspectWide}

	r.Register(ModelCapabilities{
		Name:         "imagen-4.0-generate-001",
		Operation:    OpTextToImage,
		AspectRatios: imageRatios,
		OutputMIME:   "image/jpeg",
	})
	r.Register(ModelCapabilities{
		Name:         "gemini-2.5-flash-image",
		Operation:    OpStylize,
		AspectRatios: imageRatios,
		OutputMIME:   "image/png",
	})
	r.Register(ModelCapabilities{
		Name:         "gemini-3-pro-image-preview",
		Operation:    OpUpscale,
		AspectRatios: []AspectRatio{AspectSquare},
		OutputMIME:   "image/png",
		ImageSizes:   []UpscaleSize{Upscale2K, Upscale4K},
	})
	r.Register(ModelCapabilities{
		Name:         "veo-3.1-fast-generate-preview",
		Operation:    OpAnimate,
		AspectRatios: []AspectRatio{AspectWide},
		OutputMIME:   "video/mp4",
	})

	return r
}
