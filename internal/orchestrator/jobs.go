package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/manash/stylestudio/internal/progress"
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
	StateRateLimited
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Settled reports whether s is terminal.
func (s State) Settled() bool {
	return s == StateSucceeded || s == StateFailed || s == StateRateLimited
}

type JobKind string

const (
	JobGenerate JobKind = "generate"
	JobCreate   JobKind = "create"
	JobBatch    JobKind = "batch"
	JobUpscale  JobKind = "upscale"
	JobAnimate  JobKind = "animate"
)

// Job is a snapshot of one request's lifecycle.
type Job struct {
	ID        string
	Kind      JobKind
	SessionID string
	State     State
	Err       error
	Progress  float64
	StartedAt time.Time
	EndedAt   time.Time
}

type job struct {
	id        string
	kind      JobKind
	sessionID string
	state     State
	err       error
	estimator progress.Estimator
	startedAt time.Time
	endedAt   time.Time
}

func (j *job) snapshot() Job {
	return Job{
		ID:        j.id,
		Kind:      j.kind,
		SessionID: j.sessionID,
		State:     j.state,
		Err:       j.err,
		Progress:  j.estimator.Value(),
		StartedAt: j.startedAt,
		EndedAt:   j.endedAt,
	}
}

// BatchProgress is the outer counter of a running batch.
type BatchProgress struct {
	Current int
	Total   int
}

// maxSettledJobs bounds how many finished jobs are retained for display.
const maxSettledJobs = 50

func (o *Orchestrator) newJob(kind JobKind, sessionID string) *job {
	o.mu.Lock()
	defer o.mu.Unlock()

	j := &job{
		id:        uuid.New().String(),
		kind:      kind,
		sessionID: sessionID,
		state:     StateIdle,
		estimator: o.newEstimator(),
		startedAt: o.now(),
	}
	o.jobs = append(o.jobs, j)
	o.pruneLocked()
	return j
}

func (o *Orchestrator) setState(j *job, state State, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	j.state = state
	j.err = err
	if state.Settled() {
		j.endedAt = o.now()
		o.pruneLocked()
	}
}

func (o *Orchestrator) pruneLocked() {
	settled := 0
	for _, j := range o.jobs {
		if j.state.Settled() {
			settled++
		}
	}
	if settled <= maxSettledJobs {
		return
	}
	kept := o.jobs[:0]
	for _, j := range o.jobs {
		if j.state.Settled() && settled > maxSettledJobs {
			settled--
			continue
		}
		kept = append(kept, j)
	}
	o.jobs = kept
}

// Jobs returns snapshots of tracked jobs, oldest first.
func (o *Orchestrator) Jobs() []Job {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Job, len(o.jobs))
	for i, j := range o.jobs {
		out[i] = j.snapshot()
	}
	return out
}

// InFlight reports how many jobs are still submitting.
func (o *Orchestrator) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, j := range o.jobs {
		if j.state == StateSubmitting {
			n++
		}
	}
	return n
}

func (o *Orchestrator) BatchProgress() BatchProgress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.batch
}

func (o *Orchestrator) setBatchProgress(current, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batch = BatchProgress{Current: current, Total: total}
}

// CooldownRemaining is how long the host should wait before retrying after a
// rate limit. It is zero when no cooldown is active.
func (o *Orchestrator) CooldownRemaining() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	if d := o.cooldownUntil.Sub(o.now()); d > 0 {
		return d
	}
	return 0
}

func (o *Orchestrator) startCooldown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cooldownUntil = o.now().Add(o.cooldown)
}
