package session

import (
	"bytes"
	"time"

	"github.com/manash/stylestudio/internal/history"
	"github.com/manash/stylestudio/pkg/models"
)

// Entry is one rendered result in a session's content history.
type Entry struct {
	Data     []byte
	MIMEType string
	Label    string
}

func (e Entry) Image() models.ImageData {
	return models.ImageData{Data: e.Data, MIMEType: e.MIMEType}
}

// ImageSession is a read-only snapshot of one loaded or generated image.
type ImageSession struct {
	ID              string
	Name            string
	Original        []byte
	OriginalType    string
	Content         []Entry
	ContentIndex    int
	Adjustments     []models.Adjustments
	AdjustmentIndex int
	Live            models.Adjustments
	Animation       *models.VideoRef
	CreatedAt       time.Time
}

func (s *ImageSession) Current() Entry {
	return s.Content[s.ContentIndex]
}

func (s *ImageSession) CurrentAdjustment() models.Adjustments {
	return s.Adjustments[s.AdjustmentIndex]
}

func (s *ImageSession) OriginalImage() models.ImageData {
	return models.ImageData{Data: s.Original, MIMEType: s.OriginalType}
}

type imageSession struct {
	id           string
	name         string
	original     []byte
	originalType string
	content      *history.Stack[Entry]
	adjustments  *history.Stack[models.Adjustments]
	live         models.Adjustments
	animation    *models.VideoRef
	createdAt    time.Time
}

func (s *imageSession) check() {
	s.content.Check()
	s.adjustments.Check()
}

func (s *imageSession) resetAdjustments() {
	s.adjustments.Reset(models.IdentityAdjustments())
	s.live = models.IdentityAdjustments()
}

func (s *imageSession) snapshot() *ImageSession {
	snap := &ImageSession{
		ID:              s.id,
		Name:            s.name,
		Original:        bytes.Clone(s.original),
		OriginalType:    s.originalType,
		Content:         s.content.Items(),
		ContentIndex:    s.content.Index(),
		Adjustments:     s.adjustments.Items(),
		AdjustmentIndex: s.adjustments.Index(),
		Live:            s.live,
		CreatedAt:       s.createdAt,
	}
	for i := range snap.Content {
		snap.Content[i].Data = bytes.Clone(snap.Content[i].Data)
	}
	if s.animation != nil {
		ref := *s.animation
		snap.Animation = &ref
	}
	return snap
}
