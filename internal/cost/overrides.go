package cost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const pricingFile = "pricing.json"

// LocalPricing holds user-set prices keyed by model then size.
type LocalPricing struct {
	UpdatedAt time.Time                     `json:"updated_at"`
	Source    string                        `json:"source"`
	Image     map[string]map[string]float64 `json:"image"`
}

func (p *LocalPricing) Price(model, size string) (float64, bool) {
	if size == "" {
		size = DefaultSize
	}
	sizes, ok := p.Image[model]
	if !ok {
		return 0, false
	}
	price, ok := sizes[size]
	return price, ok
}

// SavePricing writes pricing to dir/pricing.json.
func SavePricing(dir string, pricing *LocalPricing) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create pricing directory: %w", err)
	}

	data, err := json.MarshalIndent(pricing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pricing: %w", err)
	}

	if err := os.WriteFile(PricingPath(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write pricing file: %w", err)
	}
	return nil
}

// LoadPricing reads dir/pricing.json. A missing file yields nil, nil.
func LoadPricing(dir string) (*LocalPricing, error) {
	data, err := os.ReadFile(PricingPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var pricing LocalPricing
	if err := json.Unmarshal(data, &pricing); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}
	return &pricing, nil
}

func DeletePricing(dir string) error {
	if err := os.Remove(PricingPath(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete pricing file: %w", err)
	}
	return nil
}

func PricingPath(dir string) string {
	return filepath.Join(dir, pricingFile)
}

// SetPrice records a single manual price override.
func SetPrice(dir, model, size string, price float64) error {
	pricing, err := LoadPricing(dir)
	if err != nil {
		return err
	}
	if pricing == nil {
		pricing = &LocalPricing{}
	}
	if pricing.Image == nil {
		pricing.Image = make(map[string]map[string]float64)
	}
	if pricing.Image[model] == nil {
		pricing.Image[model] = make(map[string]float64)
	}
	if size == "" {
		size = DefaultSize
	}

	pricing.Image[model][size] = price
	pricing.UpdatedAt = time.Now()
	pricing.Source = "manual"

	return SavePricing(dir, pricing)
}
