package provider

import (
	"context"
	"sync"

	"github.com/manash/stylestudio/pkg/models"
)

// Builder constructs a Client for one configuration.
type Builder func(ctx context.Context, cfg *Config) (Client, error)

// Factory hands out a Client bound to the current API key and rebuilds it
// when the key changes, so a credential entered mid-session takes effect on
// the next call.
type Factory struct {
	build Builder
	base  Config
	key   func() string

	mu     sync.Mutex
	client Client
	bound  string
}

func NewFactory(base Config, key func() string, build Builder) *Factory {
	return &Factory{build: build, base: base, key: key}
}

// Get returns the client for the current key.
func (f *Factory) Get(ctx context.Context) (Client, error) {
	key := f.key()
	if key == "" {
		return nil, ErrAPIKeyRequired
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil && f.bound == key {
		return f.client, nil
	}
	cfg := f.base
	cfg.APIKey = key
	c, err := f.build(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	f.client, f.bound = c, key
	return c, nil
}

func (f *Factory) TextToImage(ctx context.Context, prompt string, aspect models.AspectRatio) (*models.ImageData, error) {
	c, err := f.Get(ctx)
	if err != nil {
		return nil, Classify(models.OpTextToImage, err)
	}
	return c.TextToImage(ctx, prompt, aspect)
}

func (f *Factory) StyleTransfer(ctx context.Context, primary models.ImageData, prompt string, reference *models.ImageData, aspect models.AspectRatio) (*models.ImageData, error) {
	c, err := f.Get(ctx)
	if err != nil {
		return nil, Classify(models.OpStylize, err)
	}
	return c.StyleTransfer(ctx, primary, prompt, reference, aspect)
}

func (f *Factory) Upscale(ctx context.Context, img models.ImageData, size models.UpscaleSize) (*models.ImageData, error) {
	c, err := f.Get(ctx)
	if err != nil {
		return nil, Classify(models.OpUpscale, err)
	}
	return c.Upscale(ctx, img, size)
}

func (f *Factory) Animate(ctx context.Context, img models.ImageData) (*models.VideoRef, error) {
	c, err := f.Get(ctx)
	if err != nil {
		return nil, Classify(models.OpAnimate, err)
	}
	return c.Animate(ctx, img)
}

var _ Client = (*Factory)(nil)
