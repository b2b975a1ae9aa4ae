package session

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manash/stylestudio/internal/history"
	"github.com/manash/stylestudio/pkg/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyImage      = errors.New("image data cannot be empty")
)

// Store owns every loaded image and its two histories. All operations are
// atomic; operations on an unknown id are no-ops that report false.
//
// Image bytes are copied on the way in, and Get and List return deep copies,
// so callers never alias store memory.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*imageSession
	order    []string
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*imageSession),
		now:      time.Now,
	}
}

// Create registers a new session whose content history holds only data.
func (s *Store) Create(data []byte, mimeType, name string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data = bytes.Clone(data)
	id := uuid.New().String()
	sess := &imageSession{
		id:           id,
		name:         name,
		original:     data,
		originalType: mimeType,
		content:      history.New(Entry{Data: data, MIMEType: mimeType, Label: "original"}),
		adjustments:  history.New(models.IdentityAdjustments()),
		live:         models.IdentityAdjustments(),
		createdAt:    s.now(),
	}
	sess.check()

	s.sessions[id] = sess
	s.order = append(s.order, id)
	return id, nil
}

// AppendContent truncates the redo tail, appends the result, resets the
// adjustment history and clears the animation reference.
func (s *Store) AppendContent(id string, data []byte, mimeType, label string) bool {
	return s.mutate(id, func(sess *imageSession) {
		sess.content.Push(Entry{Data: bytes.Clone(data), MIMEType: mimeType, Label: label})
		sess.resetAdjustments()
		sess.animation = nil
	})
}

func (s *Store) PushAdjustment(id string, adj models.Adjustments) bool {
	return s.mutate(id, func(sess *imageSession) {
		sess.adjustments.Push(adj)
		sess.live = adj
	})
}

// SetLive records an intermediate slider value without touching history.
func (s *Store) SetLive(id string, adj models.Adjustments) bool {
	return s.mutate(id, func(sess *imageSession) {
		sess.live = adj
	})
}

// CommitLive pushes the live value into history if it differs from the
// current snapshot. It reports whether a snapshot was pushed.
func (s *Store) CommitLive(id string) bool {
	pushed := false
	s.mutate(id, func(sess *imageSession) {
		if sess.live == sess.adjustments.Current() {
			return
		}
		sess.adjustments.Push(sess.live)
		pushed = true
	})
	return pushed
}

func (s *Store) UndoContent(id string) bool {
	moved := false
	s.mutate(id, func(sess *imageSession) { moved = sess.content.Undo() })
	return moved
}

func (s *Store) RedoContent(id string) bool {
	moved := false
	s.mutate(id, func(sess *imageSession) { moved = sess.content.Redo() })
	return moved
}

func (s *Store) UndoAdjustment(id string) bool {
	moved := false
	s.mutate(id, func(sess *imageSession) {
		moved = sess.adjustments.Undo()
		sess.live = sess.adjustments.Current()
	})
	return moved
}

func (s *Store) RedoAdjustment(id string) bool {
	moved := false
	s.mutate(id, func(sess *imageSession) {
		moved = sess.adjustments.Redo()
		sess.live = sess.adjustments.Current()
	})
	return moved
}

// ReplaceOriginal swaps the source image and discards every derived edit.
func (s *Store) ReplaceOriginal(id string, data []byte, mimeType string) bool {
	return s.mutate(id, func(sess *imageSession) {
		data = bytes.Clone(data)
		sess.original = data
		sess.originalType = mimeType
		sess.content.Reset(Entry{Data: data, MIMEType: mimeType, Label: "original"})
		sess.resetAdjustments()
		sess.animation = nil
	})
}

func (s *Store) SetAnimation(id string, ref models.VideoRef) bool {
	return s.mutate(id, func(sess *imageSession) {
		sess.animation = &ref
	})
}

func (s *Store) Rename(id, name string) bool {
	return s.mutate(id, func(sess *imageSession) {
		sess.name = name
	})
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*imageSession)
	s.order = nil
}

func (s *Store) Get(id string) (*ImageSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.snapshot(), nil
}

func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	return ok
}

// List returns snapshots in creation order.
func (s *Store) List() []*ImageSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*ImageSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].snapshot())
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) mutate(id string, fn func(*imageSession)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	fn(sess)
	sess.check()
	return true
}
