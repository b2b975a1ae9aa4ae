package cost

import "github.com/manash/stylestudio/pkg/models"

const (
	CurrencyUSD = "USD"
)

// Info is the estimated price of one operation.
type Info struct {
	PerUnit  float64
	Units    int
	Total    float64
	Currency string
}

type Calculator struct {
	overrides *LocalPricing
}

type Option func(*Calculator)

// WithOverrides makes locally configured prices take precedence over the
// built-in table.
func WithOverrides(p *LocalPricing) Option {
	return func(c *Calculator) { c.overrides = p }
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Estimate prices a single operation. size only matters for upscales; unknown
// models cost 0.
func (c *Calculator) Estimate(op models.Operation, model string, size models.UpscaleSize) *Info {
	if op == models.OpAnimate {
		perSecond, ok := c.override(model, DefaultSize)
		if !ok {
			perSecond, _ = GetVideoPricePerSecond(model)
		}
		return &Info{
			PerUnit:  perSecond,
			Units:    VideoSeconds,
			Total:    perSecond * VideoSeconds,
			Currency: CurrencyUSD,
		}
	}

	key := DefaultSize
	if op == models.OpUpscale && size != "" {
		key = string(size)
	}
	price, ok := c.override(model, key)
	if !ok {
		price, _ = GetImagePrice(model, key)
	}
	return &Info{
		PerUnit:  price,
		Units:    1,
		Total:    price,
		Currency: CurrencyUSD,
	}
}

func (c *Calculator) override(model, size string) (float64, bool) {
	if c.overrides == nil {
		return 0, false
	}
	return c.overrides.Price(model, size)
}
