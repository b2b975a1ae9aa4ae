package gemini

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/manash/stylestudio/internal/provider"
	"github.com/manash/stylestudio/pkg/models"
)

type fakeBackend struct {
	mu sync.Mutex

	imagesResp  *genai.GenerateImagesResponse
	contentResp *genai.GenerateContentResponse
	videoOp     *genai.GenerateVideosOperation
	polls       []*genai.GenerateVideosOperation
	err         error

	gotModel    string
	gotPrompt   string
	gotContents []*genai.Content
	gotContent  *genai.GenerateContentConfig
	gotImages   *genai.GenerateImagesConfig
	gotVideos   *genai.GenerateVideosConfig
	pollCount   int
}

func (f *fakeBackend) GenerateImages(_ context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.gotModel, f.gotPrompt, f.gotImages = model, prompt, cfg
	return f.imagesResp, f.err
}

func (f *fakeBackend) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel, f.gotContents, f.gotContent = model, contents, cfg
	return f.contentResp, f.err
}

func (f *fakeBackend) GenerateVideos(_ context.Context, model, prompt string, _ *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.gotModel, f.gotPrompt, f.gotVideos = model, prompt, cfg
	return f.videoOp, f.err
}

func (f *fakeBackend) GetVideosOperation(_ context.Context, _ *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollCount >= len(f.polls) {
		return &genai.GenerateVideosOperation{Name: "ops/1"}, nil
	}
	op := f.polls[f.pollCount]
	f.pollCount++
	return op, nil
}

func imageResponse(data []byte, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				genai.NewPartFromText("here you go"),
				{InlineData: &genai.Blob{Data: data, MIMEType: mime}},
			}},
		}},
	}
}

var primary = models.ImageData{Data: []byte("content"), MIMEType: "image/jpeg"}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, provider.ErrAPIKeyRequired)

	_, err = New(context.Background(), &provider.Config{})
	assert.ErrorIs(t, err, provider.ErrAPIKeyRequired)
}

func TestTextToImage(t *testing.T) {
	fb := &fakeBackend{imagesResp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: []byte("jpeg")}}},
	}}
	c := newClient(fb)

	got, err := c.TextToImage(context.Background(), "a fox", models.AspectAuto)
	require.NoError(t, err)

	assert.Equal(t, "jpeg", string(got.Data))
	assert.Equal(t, "image/jpeg", got.MIMEType)
	assert.Equal(t, "imagen-4.0-generate-001", fb.gotModel)
	assert.Equal(t, "a fox", fb.gotPrompt)
	assert.Equal(t, int32(1), fb.gotImages.NumberOfImages)
	assert.Equal(t, "1:1", fb.gotImages.AspectRatio)
	assert.Equal(t, "image/jpeg", fb.gotImages.OutputMIMEType)
}

func TestTextToImage_NoCandidate(t *testing.T) {
	c := newClient(&fakeBackend{imagesResp: &genai.GenerateImagesResponse{}})

	_, err := c.TextToImage(context.Background(), "a fox", models.AspectWide)
	assert.ErrorIs(t, err, provider.ErrNoCandidate)
}

func TestTextToImage_NilResponse(t *testing.T) {
	c := newClient(&fakeBackend{})

	_, err := c.TextToImage(context.Background(), "a fox", models.AspectAuto)
	assert.ErrorIs(t, err, provider.ErrNoCandidate)
}

func TestStyleTransfer_Parts(t *testing.T) {
	fb := &fakeBackend{contentResp: imageResponse([]byte("styled"), "image/png")}
	c := newClient(fb)
	ref := &models.ImageData{Data: []byte("ref"), MIMEType: "image/webp"}

	got, err := c.StyleTransfer(context.Background(), primary, "make it watercolor", ref, models.AspectPortrait)
	require.NoError(t, err)
	assert.Equal(t, "styled", string(got.Data))

	assert.Equal(t, "gemini-2.5-flash-image", fb.gotModel)
	require.Len(t, fb.gotContents, 1)
	parts := fb.gotContents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, []byte("content"), parts[0].InlineData.Data)
	assert.Equal(t, "image/webp", parts[1].InlineData.MIMEType)
	assert.Equal(t, "make it watercolor", parts[2].Text)
	assert.Equal(t, "3:4", fb.gotContent.ImageConfig.AspectRatio)
}

func TestStyleTransfer_WithoutReference(t *testing.T) {
	fb := &fakeBackend{contentResp: imageResponse([]byte("styled"), "")}
	c := newClient(fb)

	got, err := c.StyleTransfer(context.Background(), primary, "p", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MIMEType)
	assert.Len(t, fb.gotContents[0].Parts, 2)
	assert.Equal(t, "1:1", fb.gotContent.ImageConfig.AspectRatio)
}

func TestStyleTransfer_Errors(t *testing.T) {
	c := newClient(&fakeBackend{})
	_, err := c.StyleTransfer(context.Background(), models.ImageData{}, "p", nil, "")
	assert.ErrorIs(t, err, models.ErrNoImageData)

	c = newClient(&fakeBackend{contentResp: &genai.GenerateContentResponse{}})
	_, err = c.StyleTransfer(context.Background(), primary, "p", nil, "")
	assert.ErrorIs(t, err, provider.ErrNoCandidate)

	c = newClient(&fakeBackend{err: errors.New("RESOURCE_EXHAUSTED")})
	_, err = c.StyleTransfer(context.Background(), primary, "p", nil, "")
	assert.ErrorIs(t, err, provider.ErrRateLimited)

	c = newClient(&fakeBackend{err: errors.New("Requested entity was not found.")})
	_, err = c.StyleTransfer(context.Background(), primary, "p", nil, "")
	assert.ErrorIs(t, err, provider.ErrEntityNotFound)
}

func TestUpscale(t *testing.T) {
	fb := &fakeBackend{contentResp: imageResponse([]byte("big"), "image/png")}
	c := newClient(fb)

	got, err := c.Upscale(context.Background(), primary, models.Upscale4K)
	require.NoError(t, err)
	assert.Equal(t, "big", string(got.Data))

	assert.Equal(t, "gemini-3-pro-image-preview", fb.gotModel)
	assert.Equal(t, "4K", fb.gotContent.ImageConfig.ImageSize)
	assert.Equal(t, "1:1", fb.gotContent.ImageConfig.AspectRatio)
	assert.Equal(t, "Upscale this image to 4K resolution while strictly preserving the original art style.",
		fb.gotContents[0].Parts[1].Text)

	_, err = c.Upscale(context.Background(), primary, "8K")
	assert.ErrorIs(t, err, models.ErrInvalidUpscaleSize)
}

func TestAnimate_PollsUntilDone(t *testing.T) {
	done := &genai.GenerateVideosOperation{
		Name: "ops/1",
		Done: true,
		Response: &genai.GenerateVideosResponse{GeneratedVideos: []*genai.GeneratedVideo{
			{Video: &genai.Video{URI: "https://example.com/v.mp4", MIMEType: "video/mp4"}},
		}},
	}
	fb := &fakeBackend{
		videoOp: &genai.GenerateVideosOperation{Name: "ops/1"},
		polls:   []*genai.GenerateVideosOperation{{Name: "ops/1"}, {Name: "ops/1"}, done},
	}
	c := newClient(fb, WithPollInterval(time.Millisecond))

	ref, err := c.Animate(context.Background(), primary)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/v.mp4", ref.URI)
	assert.Equal(t, 3, fb.pollCount)
	assert.Equal(t, "veo-3.1-fast-generate-preview", fb.gotModel)
	assert.Equal(t, "Animate this image with subtle, beautiful motion.", fb.gotPrompt)
	assert.Equal(t, "720p", fb.gotVideos.Resolution)
	assert.Equal(t, "16:9", fb.gotVideos.AspectRatio)
	assert.Equal(t, int32(1), fb.gotVideos.NumberOfVideos)
}

func TestAnimate_CancelStopsPolling(t *testing.T) {
	fb := &fakeBackend{videoOp: &genai.GenerateVideosOperation{Name: "ops/1"}}
	c := newClient(fb, WithPollInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Animate(ctx, primary)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnimate_OperationError(t *testing.T) {
	fb := &fakeBackend{videoOp: &genai.GenerateVideosOperation{
		Name:  "ops/1",
		Done:  true,
		Error: map[string]any{"message": "quota RESOURCE_EXHAUSTED"},
	}}
	c := newClient(fb)

	_, err := c.Animate(context.Background(), primary)
	assert.ErrorIs(t, err, provider.ErrRateLimited)
}

func TestAnimate_NoVideo(t *testing.T) {
	fb := &fakeBackend{videoOp: &genai.GenerateVideosOperation{Name: "ops/1", Done: true}}
	c := newClient(fb)

	_, err := c.Animate(context.Background(), primary)
	assert.ErrorIs(t, err, provider.ErrNoCandidate)
}

func TestAnimate_NilOperation(t *testing.T) {
	c := newClient(&fakeBackend{}, WithPollInterval(time.Millisecond))

	_, err := c.Animate(context.Background(), primary)
	assert.ErrorIs(t, err, provider.ErrNoCandidate)

	fb := &fakeBackend{
		videoOp: &genai.GenerateVideosOperation{Name: "ops/1"},
		polls:   []*genai.GenerateVideosOperation{{Name: "ops/1"}, nil},
	}
	c = newClient(fb, WithPollInterval(time.Millisecond))

	_, err = c.Animate(context.Background(), primary)
	assert.ErrorIs(t, err, provider.ErrNoCandidate)
	assert.Equal(t, 2, fb.pollCount)
}

func TestWithRegistry(t *testing.T) {
	reg := models.DefaultRegistry()
	reg.Override(models.OpStylize, "gemini-next-image")
	fb := &fakeBackend{contentResp: imageResponse([]byte("x"), "image/png")}

	c := newClient(fb, WithRegistry(reg))
	_, err := c.StyleTransfer(context.Background(), primary, "p", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "gemini-next-image", fb.gotModel)
}
