package cost

import (
	"os"
	"testing"
)

func TestSetPrice_Integration(t *testing.T) {
	dir := t.TempDir()

	if err := SetPrice(dir, "gemini-3-pro-image-preview", "4K", 0.3); err != nil {
		t.Fatalf("SetPrice() error = %v", err)
	}
	if err := SetPrice(dir, "gemini-2.5-flash-image", "", 0.02); err != nil {
		t.Fatalf("SetPrice() error = %v", err)
	}

	pricing, err := LoadPricing(dir)
	if err != nil {
		t.Fatalf("LoadPricing() error = %v", err)
	}
	if pricing.Source != "manual" {
		t.Errorf("Source = %q, want manual", pricing.Source)
	}
	if price, ok := pricing.Price("gemini-3-pro-image-preview", "4K"); !ok || !floatEquals(price, 0.3) {
		t.Errorf("Price() = %v, %v, want 0.3, true", price, ok)
	}
	if price, ok := pricing.Price("gemini-2.5-flash-image", ""); !ok || !floatEquals(price, 0.02) {
		t.Errorf("Price() = %v, %v, want 0.02, true", price, ok)
	}
}

func TestLoadPricing_Missing(t *testing.T) {
	pricing, err := LoadPricing(t.TempDir())
	if err != nil {
		t.Fatalf("LoadPricing() error = %v", err)
	}
	if pricing != nil {
		t.Errorf("LoadPricing() = %v, want nil", pricing)
	}
}

func TestLoadPricing_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(PricingPath(dir), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPricing(dir); err == nil {
		t.Error("LoadPricing() expected error for corrupt file")
	}
}

func TestDeletePricing(t *testing.T) {
	dir := t.TempDir()
	if err := SetPrice(dir, "m", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := DeletePricing(dir); err != nil {
		t.Fatalf("DeletePricing() error = %v", err)
	}
	if _, err := os.Stat(PricingPath(dir)); !os.IsNotExist(err) {
		t.Error("pricing file should be removed")
	}
	if err := DeletePricing(dir); err != nil {
		t.Errorf("DeletePricing() on missing file error = %v", err)
	}
}
