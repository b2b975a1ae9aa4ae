package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/manash/stylestudio/pkg/models"
)

type keyedClient struct {
	key string
}

func (c *keyedClient) TextToImage(context.Context, string, models.AspectRatio) (*models.ImageData, error) {
	return &models.ImageData{Data: []byte(c.key), MIMEType: "image/png"}, nil
}

func (c *keyedClient) StyleTransfer(context.Context, models.ImageData, string, *models.ImageData, models.AspectRatio) (*models.ImageData, error) {
	return &models.ImageData{Data: []byte(c.key), MIMEType: "image/png"}, nil
}

func (c *keyedClient) Upscale(context.Context, models.ImageData, models.UpscaleSize) (*models.ImageData, error) {
	return &models.ImageData{Data: []byte(c.key), MIMEType: "image/png"}, nil
}

func (c *keyedClient) Animate(context.Context, models.ImageData) (*models.VideoRef, error) {
	return &models.VideoRef{URI: c.key}, nil
}

func TestFactory_RebuildsOnKeyChange(t *testing.T) {
	key := "first"
	builds := 0
	f := NewFactory(Config{TimeoutSec: 30}, func() string { return key }, func(_ context.Context, cfg *Config) (Client, error) {
		builds++
		if cfg.TimeoutSec != 30 {
			t.Errorf("base config not carried: %+v", cfg)
		}
		return &keyedClient{key: cfg.APIKey}, nil
	})
	ctx := context.Background()

	img, err := f.TextToImage(ctx, "p", models.AspectSquare)
	if err != nil {
		t.Fatalf("TextToImage() error = %v", err)
	}
	if string(img.Data) != "first" {
		t.Errorf("TextToImage() used key %q", img.Data)
	}
	f.Upscale(ctx, models.ImageData{}, models.Upscale2K)
	if builds != 1 {
		t.Errorf("builds = %d, want 1 while the key is unchanged", builds)
	}

	key = "second"
	ref, err := f.Animate(ctx, models.ImageData{})
	if err != nil {
		t.Fatalf("Animate() error = %v", err)
	}
	if ref.URI != "second" || builds != 2 {
		t.Errorf("Animate() key = %q builds = %d", ref.URI, builds)
	}
}

func TestFactory_MissingKey(t *testing.T) {
	f := NewFactory(Config{}, func() string { return "" }, func(context.Context, *Config) (Client, error) {
		t.Fatal("builder must not run without a key")
		return nil, nil
	})

	_, err := f.StyleTransfer(context.Background(), models.ImageData{}, "p", nil, models.AspectSquare)
	if !errors.Is(err, ErrAuthFailure) || !IsReauth(err) {
		t.Errorf("StyleTransfer() error = %v, want auth failure", err)
	}
}

func TestFactory_BuildError(t *testing.T) {
	boom := errors.New("boom")
	f := NewFactory(Config{}, func() string { return "k" }, func(context.Context, *Config) (Client, error) {
		return nil, boom
	})
	if _, err := f.Get(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want boom", err)
	}
}
