package library

import (
	"context"
	"errors"

	"github.com/manash/stylestudio/pkg/models"
)

// Sink receives gallery entries.
type Sink interface {
	Record(ctx context.Context, entry models.GalleryEntry) error
}

// Fanout records to every sink and joins their errors. All sinks see the
// same entry id.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, entry models.GalleryEntry) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
