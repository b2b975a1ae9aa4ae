package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/manash/stylestudio/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"entity not found", errors.New("Error 404: Requested entity was not found."), ErrEntityNotFound},
		{"invalid key", errors.New("API key not valid. Please pass a valid API key."), ErrAuthFailure},
		{"missing key", fmt.Errorf("gemini: %w", ErrAPIKeyRequired), ErrAuthFailure},
		{"status 429 text", errors.New("got status 429 from server"), ErrRateLimited},
		{"rate limit words", errors.New("Rate Limit exceeded"), ErrRateLimited},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED: quota"), ErrRateLimited},
		{"api error 429", genai.APIError{Code: 429, Message: "slow down"}, ErrRateLimited},
		{"api error 403", genai.APIError{Code: 403, Message: "forbidden"}, ErrAuthFailure},
		{"api error not found message", genai.APIError{Code: 404, Message: "Requested entity was not found.", Status: "NOT_FOUND"}, ErrEntityNotFound},
		{"anything else", errors.New("internal server error"), ErrRemoteUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(models.OpStylize, tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(got.Error(), tt.err.Error()) {
				t.Errorf("Classify() = %q, lost the cause %q", got, tt.err)
			}
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	if Classify(models.OpUpscale, nil) != nil {
		t.Error("Classify(nil) != nil")
	}

	passthrough := []error{
		context.Canceled,
		fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
		ErrNoCandidate,
	}
	for _, err := range passthrough {
		if got := Classify(models.OpUpscale, err); got != err {
			t.Errorf("Classify(%v) = %v, want unchanged", err, got)
		}
	}

	first := Classify(models.OpAnimate, errors.New("RESOURCE_EXHAUSTED"))
	if got := Classify(models.OpStylize, first); got != first {
		t.Errorf("Classify() reclassified an *Error: %v", got)
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindRateLimited, Op: models.OpStylize, Err: errors.New("429")}
	want := "stylize: rate limit reached, please try again later: 429"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var classified *Error
	if !errors.As(fmt.Errorf("outer: %w", err), &classified) || classified.Kind != KindRateLimited {
		t.Error("errors.As() did not find *Error")
	}
}

func TestIsReauth(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&Error{Kind: KindAuth}, true},
		{&Error{Kind: KindEntityNotFound}, true},
		{&Error{Kind: KindRateLimited}, false},
		{&Error{Kind: KindUnknown}, false},
		{ErrNoCandidate, false},
	}

	for _, tt := range tests {
		if got := IsReauth(tt.err); got != tt.want {
			t.Errorf("IsReauth(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestKind_String(t *testing.T) {
	kinds := map[Kind]string{
		KindUnknown:        "unknown",
		KindAuth:           "auth_failure",
		KindRateLimited:    "rate_limited",
		KindEntityNotFound: "entity_not_found",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
