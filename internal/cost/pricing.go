package cost

import (
	"cmp"
	"slices"

	"github.com/manash/stylestudio/pkg/models"
)

// Gemini API pricing (USD)
// Source: https://ai.google.dev/gemini-api/docs/pricing

const (
	// DefaultSize keys prices for models billed the same at every size.
	DefaultSize = "default"

	// VideoSeconds is the clip length requested for animations.
	VideoSeconds = 8
)

type PricingKey struct {
	Model string
	Size  string
}

var imagePricing = map[PricingKey]float64{
	{Model: "imagen-4.0-generate-001", Size: DefaultSize}:       0.040,
	{Model: "imagen-4.0-fast-generate-001", Size: DefaultSize}:  0.020,
	{Model: "imagen-4.0-ultra-generate-001", Size: DefaultSize}: 0.060,
	{Model: "gemini-2.5-flash-image", Size: DefaultSize}:        0.039,

	{Model: "gemini-3-pro-image-preview", Size: DefaultSize}:              0.134,
	{Model: "gemini-3-pro-image-preview", Size: string(models.Upscale2K)}: 0.134,
	{Model: "gemini-3-pro-image-preview", Size: string(models.Upscale4K)}: 0.240,
}

func GetImagePrice(model, size string) (float64, bool) {
	if size == "" {
		size = DefaultSize
	}
	price, ok := imagePricing[PricingKey{Model: model, Size: size}]
	if !ok && size != DefaultSize {
		price, ok = imagePricing[PricingKey{Model: model, Size: DefaultSize}]
	}
	return price, ok
}

// Video pricing (USD per second)
var videoPricing = map[string]float64{
	"veo-3.1-fast-generate-preview": 0.15,
	"veo-3.1-generate-preview":      0.40,
	"veo-3.0-fast-generate-001":     0.15,
}

func GetVideoPricePerSecond(model string) (float64, bool) {
	price, ok := videoPricing[model]
	return price, ok
}

// ImagePrice is one built-in per-image price.
type ImagePrice struct {
	PricingKey
	USD float64
}

// ImagePrices lists the built-in image prices ordered by model, then size.
func ImagePrices() []ImagePrice {
	out := make([]ImagePrice, 0, len(imagePricing))
	for k, v := range imagePricing {
		out = append(out, ImagePrice{PricingKey: k, USD: v})
	}
	slices.SortFunc(out, func(a, b ImagePrice) int {
		return cmp.Or(cmp.Compare(a.Model, b.Model), cmp.Compare(a.Size, b.Size))
	})
	return out
}
