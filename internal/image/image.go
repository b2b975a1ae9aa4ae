package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/manash/stylestudio/internal/compositor"
	"github.com/manash/stylestudio/internal/security"
	"github.com/manash/stylestudio/internal/session"
	"github.com/manash/stylestudio/pkg/models"
)

// apiKeyHeader authenticates video downloads against the generative service.
const apiKeyHeader = "x-goog-api-key"

type Saver struct {
	httpClient *http.Client
	apiKey     func() string
	now        func() time.Time
}

type Option func(*Saver)

// WithAPIKey sets the key sent when downloading video references.
func WithAPIKey(key string) Option {
	return WithKeySource(func() string { return key })
}

// WithKeySource reads the download key on every request, so a key replaced
// mid-session is picked up.
func WithKeySource(key func() string) Option {
	return func(s *Saver) {
		s.apiKey = key
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Saver) {
		s.httpClient = c
	}
}

func NewSaver(opts ...Option) *Saver {
	s := &Saver{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes img to path as-is.
func (s *Saver) Save(img models.ImageData, path string) error {
	if img.IsEmpty() {
		return models.ErrNoImageData
	}
	return s.write(path, img.Data)
}

// Export renders the selected content entry of sess under its committed
// adjustment and writes it in format. An empty path derives a name from the
// session. The written path is returned.
func (s *Saver) Export(sess *session.ImageSession, format models.OutputFormat, quality int, path string) (string, error) {
	if !format.IsValid() {
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if path == "" {
		path = GenerateFilename(sess.Name, format, s.now())
	}

	data, err := compositor.RenderBytes(sess.Current().Data, sess.CurrentAdjustment(), format, quality)
	if err != nil {
		return "", fmt.Errorf("failed to render export: %w", err)
	}
	if err := s.write(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// SaveVideo downloads the video behind ref and writes it to path.
func (s *Saver) SaveVideo(ctx context.Context, ref models.VideoRef, name, path string) (string, error) {
	if err := security.ValidateDownloadURL(ref.URI, true); err != nil {
		return "", fmt.Errorf("refusing to download video: %w", err)
	}
	if path == "" {
		path = GenerateVideoFilename(name, s.now())
	}

	data, err := s.download(ctx, ref.URI)
	if err != nil {
		return "", fmt.Errorf("failed to download video: %w", err)
	}
	if err := s.write(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Saver) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if s.apiKey != nil {
		if key := s.apiKey(); key != "" {
			req.Header.Set(apiKeyHeader, key)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *Saver) write(path string, data []byte) error {
	if err := s.ensureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func GenerateFilename(name string, format models.OutputFormat, t time.Time) string {
	return fmt.Sprintf("%s-%s.%s", security.SanitizeFilename(name), t.Format("20060102-150405"), format)
}

func GenerateVideoFilename(name string, t time.Time) string {
	return fmt.Sprintf("%s-%s.mp4", security.SanitizeFilename(name), t.Format("20060102-150405"))
}
