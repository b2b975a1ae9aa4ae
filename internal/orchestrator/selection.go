package orchestrator

import (
	"slices"
	"sync"
)

// Selection is the style choice for a generation request. It is one of
// SingleStyle, CustomPrompt, Blend or BatchSet.
type Selection interface {
	isSelection()
}

type SingleStyle struct {
	StyleID  string
	Modifier string
}

type CustomPrompt struct {
	Text string
}

// Blend mixes two styles; Ratio is the percentage given to StyleA.
type Blend struct {
	StyleA string
	StyleB string
	Ratio  int
}

type BatchSet struct {
	StyleIDs []string
	Modifier string
}

func (SingleStyle) isSelection()  {}
func (CustomPrompt) isSelection() {}
func (Blend) isSelection()        {}
func (BatchSet) isSelection()     {}

const DefaultBlendRatio = 50

// Modes tracks the host's selection controls. Batch and blend modes are
// mutually exclusive.
type Modes struct {
	mu sync.Mutex

	styleID    string
	modifier   string
	custom     string
	batch      bool
	batchIDs   []string
	blend      bool
	blendA     string
	blendB     string
	blendRatio int
}

func NewModes() *Modes {
	return &Modes{blendRatio: DefaultBlendRatio}
}

func (m *Modes) SetStyle(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.styleID = id
}

func (m *Modes) SetModifier(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modifier = text
}

// SetCustomPrompt overrides any style selection while non-empty.
func (m *Modes) SetCustomPrompt(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custom = text
}

func (m *Modes) SetBatch(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batch = on
	if on {
		m.blend = false
	}
}

func (m *Modes) SetBlend(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blend = on
	if on {
		m.batch = false
	}
}

func (m *Modes) BatchEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batch
}

func (m *Modes) BlendEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blend
}

// ToggleBatchStyle adds id to the batch set or removes it if present. The set
// keeps insertion order.
func (m *Modes) ToggleBatchStyle(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := slices.Index(m.batchIDs, id); i >= 0 {
		m.batchIDs = slices.Delete(m.batchIDs, i, i+1)
		return
	}
	m.batchIDs = append(m.batchIDs, id)
}

func (m *Modes) BatchStyles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.batchIDs)
}

// PickBlendStyle fills slot A first. Picking the current A again clears it;
// any other pick replaces B.
func (m *Modes) PickBlendStyle(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.blendA == "":
		m.blendA = id
	case m.blendA == id:
		m.blendA = ""
	default:
		m.blendB = id
	}
}

func (m *Modes) BlendStyles() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blendA, m.blendB
}

// SetBlendRatio clamps r to [0, 100].
func (m *Modes) SetBlendRatio(r int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blendRatio = min(max(r, 0), 100)
}

// Selection materializes the current controls. It returns nil when nothing
// usable is selected.
func (m *Modes) Selection() Selection {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.batch:
		if len(m.batchIDs) == 0 {
			return nil
		}
		return BatchSet{StyleIDs: slices.Clone(m.batchIDs), Modifier: m.modifier}
	case m.blend:
		if m.blendA == "" || m.blendB == "" {
			return nil
		}
		return Blend{StyleA: m.blendA, StyleB: m.blendB, Ratio: m.blendRatio}
	case m.custom != "":
		return CustomPrompt{Text: m.custom}
	case m.styleID != "":
		return SingleStyle{StyleID: m.styleID, Modifier: m.modifier}
	}
	return nil
}
