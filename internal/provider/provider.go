package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/manash/stylestudio/pkg/models"
)

var (
	ErrAuthFailure    = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limit reached, please try again later")
	ErrEntityNotFound = errors.New("requested entity was not found")
	ErrRemoteUnknown  = errors.New("generation failed")
	ErrNoCandidate    = errors.New("no candidate returned") // soft: the call succeeded with nothing usable
	ErrAPIKeyRequired = errors.New("API key is required")
)

// Client is the boundary to the remote generation service. Every method
// returns ErrNoCandidate when the service answers without a usable result and
// an *Error for classified failures.
type Client interface {
	TextToImage(ctx context.Context, prompt string, aspect models.AspectRatio) (*models.ImageData, error)
	StyleTransfer(ctx context.Context, primary models.ImageData, prompt string, reference *models.ImageData, aspect models.AspectRatio) (*models.ImageData, error)
	Upscale(ctx context.Context, img models.ImageData, size models.UpscaleSize) (*models.ImageData, error)
	Animate(ctx context.Context, img models.ImageData) (*models.VideoRef, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	TimeoutSec int
}

type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindRateLimited
	KindEntityNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth_failure"
	case KindRateLimited:
		return "rate_limited"
	case KindEntityNotFound:
		return "entity_not_found"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuthFailure
	case KindRateLimited:
		return ErrRateLimited
	case KindEntityNotFound:
		return ErrEntityNotFound
	default:
		return ErrRemoteUnknown
	}
}

// Error is a classified remote failure. errors.Is matches both the kind's
// sentinel and the underlying cause.
type Error struct {
	Kind Kind
	Op   models.Operation
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// Classify maps a raw SDK error onto the failure taxonomy. Context errors,
// ErrNoCandidate and already classified errors pass through unchanged.
func Classify(op models.Operation, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNoCandidate) {
		return err
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: kindOf(err), Op: op, Err: err}
}

func kindOf(err error) Kind {
	msg := err.Error()

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message + " " + apiErr.Status + " " + msg
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindAuth
		case http.StatusTooManyRequests:
			return KindRateLimited
		}
	}

	switch {
	case errors.Is(err, ErrAPIKeyRequired):
		return KindAuth
	case strings.Contains(msg, "Requested entity was not found."):
		return KindEntityNotFound
	case strings.Contains(msg, "API key not valid"):
		return KindAuth
	case strings.Contains(msg, "429"),
		strings.Contains(strings.ToLower(msg), "rate limit"),
		strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return KindRateLimited
	}
	return KindUnknown
}

// IsReauth reports whether err should send the user back to credential
// selection.
func IsReauth(err error) bool {
	return errors.Is(err, ErrAuthFailure) || errors.Is(err, ErrEntityNotFound)
}
