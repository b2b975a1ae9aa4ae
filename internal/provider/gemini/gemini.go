// Package gemini implements provider.Client on top of the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/manash/stylestudio/internal/provider"
	"github.com/manash/stylestudio/pkg/models"
)

const (
	DefaultPollInterval = 10 * time.Second

	animatePrompt     = "Animate this image with subtle, beautiful motion."
	videoResolution   = "720p"
	videoAspectRatio  = "16:9"
	upscalePromptTmpl = "Upscale this image to %s resolution while strictly preserving the original art style."
)

// backend is the slice of the SDK the client uses.
type backend interface {
	GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

type sdkBackend struct {
	client *genai.Client
}

func (b *sdkBackend) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return b.client.Models.GenerateImages(ctx, model, prompt, cfg)
}

func (b *sdkBackend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.client.Models.GenerateContent(ctx, model, contents, cfg)
}

func (b *sdkBackend) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, image, cfg)
}

func (b *sdkBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

type Client struct {
	backend      backend
	registry     *models.ModelRegistry
	pollInterval time.Duration
	log          zerolog.Logger
}

type Option func(*Client)

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithRegistry(r *models.ModelRegistry) Option {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(ctx context.Context, cfg *provider.Config, opts ...Option) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	if cfg.TimeoutSec > 0 {
		cc.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}
	}

	sdk, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newClient(&sdkBackend{client: sdk}, opts...), nil
}

func newClient(b backend, opts ...Option) *Client {
	c := &Client{
		backend:      b,
		registry:     models.DefaultRegistry(),
		pollInterval: DefaultPollInterval,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) TextToImage(ctx context.Context, prompt string, aspect models.AspectRatio) (*models.ImageData, error) {
	model, err := c.registry.Model(models.OpTextToImage)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("model", model).Str("aspect", aspect.Normalize().String()).Msg("text-to-image request")

	resp, err := c.backend.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/jpeg",
		AspectRatio:    aspect.Normalize().String(),
	})
	if err != nil {
		return nil, provider.Classify(models.OpTextToImage, err)
	}
	if resp == nil {
		return nil, provider.ErrNoCandidate
	}

	for _, gi := range resp.GeneratedImages {
		if gi != nil && gi.Image != nil && len(gi.Image.ImageBytes) > 0 {
			mime := gi.Image.MIMEType
			if mime == "" {
				mime = "image/jpeg"
			}
			return &models.ImageData{Data: gi.Image.ImageBytes, MIMEType: mime}, nil
		}
	}
	return nil, provider.ErrNoCandidate
}

func (c *Client) StyleTransfer(ctx context.Context, primary models.ImageData, prompt string, reference *models.ImageData, aspect models.AspectRatio) (*models.ImageData, error) {
	if primary.IsEmpty() {
		return nil, models.ErrNoImageData
	}
	model, err := c.registry.Model(models.OpStylize)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{genai.NewPartFromBytes(primary.Data, primary.MIMEType)}
	if reference != nil && !reference.IsEmpty() {
		parts = append(parts, genai.NewPartFromBytes(reference.Data, reference.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	c.log.Debug().Str("model", model).Bool("reference", reference != nil).Msg("stylize request")

	resp, err := c.backend.GenerateContent(ctx, model, []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: aspect.Normalize().String()},
	})
	if err != nil {
		return nil, provider.Classify(models.OpStylize, err)
	}
	return firstInlineImage(resp)
}

func (c *Client) Upscale(ctx context.Context, img models.ImageData, size models.UpscaleSize) (*models.ImageData, error) {
	if img.IsEmpty() {
		return nil, models.ErrNoImageData
	}
	if _, err := models.ParseUpscaleSize(string(size)); err != nil {
		return nil, err
	}
	model, err := c.registry.Model(models.OpUpscale)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIMEType),
		genai.NewPartFromText(fmt.Sprintf(upscalePromptTmpl, size)),
	}

	c.log.Debug().Str("model", model).Str("size", string(size)).Msg("upscale request")

	resp, err := c.backend.GenerateContent(ctx, model, []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: models.AspectSquare.String(),
			ImageSize:   string(size),
		},
	})
	if err != nil {
		return nil, provider.Classify(models.OpUpscale, err)
	}
	return firstInlineImage(resp)
}

// Animate starts a video job and polls it until it completes. There is no
// poll limit; cancel ctx to stop waiting.
func (c *Client) Animate(ctx context.Context, img models.ImageData) (*models.VideoRef, error) {
	if img.IsEmpty() {
		return nil, models.ErrNoImageData
	}
	model, err := c.registry.Model(models.OpAnimate)
	if err != nil {
		return nil, err
	}

	op, err := c.backend.GenerateVideos(ctx, model, animatePrompt,
		&genai.Image{ImageBytes: img.Data, MIMEType: img.MIMEType},
		&genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			Resolution:     videoResolution,
			AspectRatio:    videoAspectRatio,
		})
	if err != nil {
		return nil, provider.Classify(models.OpAnimate, err)
	}
	if op == nil {
		return nil, provider.ErrNoCandidate
	}

	op, err = c.pollVideo(ctx, op)
	if err != nil {
		return nil, err
	}

	if op.Response != nil {
		for _, v := range op.Response.GeneratedVideos {
			if v != nil && v.Video != nil && v.Video.URI != "" {
				return &models.VideoRef{URI: v.Video.URI, MIMEType: v.Video.MIMEType}, nil
			}
		}
	}
	return nil, provider.ErrNoCandidate
}

func (c *Client) pollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; !op.Done; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			next, err := c.backend.GetVideosOperation(ctx, op)
			if err != nil {
				return nil, provider.Classify(models.OpAnimate, err)
			}
			if next == nil {
				return nil, provider.ErrNoCandidate
			}
			op = next
			c.log.Debug().Str("operation", op.Name).Int("attempt", attempt).Bool("done", op.Done).Msg("polled video operation")
		}
	}

	if len(op.Error) > 0 {
		return nil, provider.Classify(models.OpAnimate, fmt.Errorf("video operation failed: %v", op.Error))
	}
	return op, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) (*models.ImageData, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, provider.ErrNoCandidate
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil, provider.ErrNoCandidate
	}
	for _, part := range cand.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &models.ImageData{Data: part.InlineData.Data, MIMEType: mime}, nil
		}
	}
	return nil, provider.ErrNoCandidate
}

var _ provider.Client = (*Client)(nil)
