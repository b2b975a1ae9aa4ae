// Package progress estimates completion for remote calls that report none.
package progress

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Estimator reports a completion percentage in [0, 100].
type Estimator interface {
	Start(ctx context.Context)
	Complete()
	Value() float64
}

const (
	DefaultCeiling    = 95
	DefaultMaxStep    = 5
	DefaultInterval   = 400 * time.Millisecond
	DefaultResetDelay = 500 * time.Millisecond
)

// Simulated creeps toward Ceiling by a random step every Interval. Complete
// jumps to 100 and falls back to 0 after ResetDelay.
type Simulated struct {
	Ceiling    float64
	MaxStep    float64
	Interval   time.Duration
	ResetDelay time.Duration

	mu     sync.Mutex
	value  float64
	rnd    func() float64
	cancel context.CancelFunc
	reset  *time.Timer
}

type Option func(*Simulated)

// WithRand replaces the step source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(s *Simulated) { s.rnd = fn }
}

func WithInterval(d time.Duration) Option {
	return func(s *Simulated) { s.Interval = d }
}

func WithResetDelay(d time.Duration) Option {
	return func(s *Simulated) { s.ResetDelay = d }
}

func NewSimulated(opts ...Option) *Simulated {
	s := &Simulated{
		Ceiling:    DefaultCeiling,
		MaxStep:    DefaultMaxStep,
		Interval:   DefaultInterval,
		ResetDelay: DefaultResetDelay,
		rnd:        rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resets the value to 0 and ticks until Complete is called or ctx ends.
func (s *Simulated) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.reset != nil {
		s.reset.Stop()
		s.reset = nil
	}
	s.value = 0
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	interval := s.Interval
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

// Tick advances the estimate by one random step, capped at Ceiling.
func (s *Simulated) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value >= s.Ceiling {
		return
	}
	s.value += s.rnd() * s.MaxStep
	if s.value > s.Ceiling {
		s.value = s.Ceiling
	}
}

func (s *Simulated) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.value = 100
	if s.reset != nil {
		s.reset.Stop()
	}
	s.reset = time.AfterFunc(s.ResetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.value == 100 {
			s.value = 0
		}
	})
}

func (s *Simulated) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

var _ Estimator = (*Simulated)(nil)
