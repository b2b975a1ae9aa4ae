package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModes_BatchAndBlendAreExclusive(t *testing.T) {
	m := NewModes()

	m.SetBatch(true)
	assert.True(t, m.BatchEnabled())

	m.SetBlend(true)
	assert.True(t, m.BlendEnabled())
	assert.False(t, m.BatchEnabled())

	m.SetBatch(true)
	assert.False(t, m.BlendEnabled())
}

func TestModes_ToggleBatchStyleKeepsOrder(t *testing.T) {
	m := NewModes()
	m.ToggleBatchStyle("c")
	m.ToggleBatchStyle("a")
	m.ToggleBatchStyle("b")
	m.ToggleBatchStyle("a")
	m.ToggleBatchStyle("a")

	assert.Equal(t, []string{"c", "b", "a"}, m.BatchStyles())
}

func TestModes_PickBlendStyle(t *testing.T) {
	m := NewModes()

	m.PickBlendStyle("anime")
	a, b := m.BlendStyles()
	assert.Equal(t, "anime", a)
	assert.Empty(t, b)

	m.PickBlendStyle("oil")
	a, b = m.BlendStyles()
	assert.Equal(t, "anime", a)
	assert.Equal(t, "oil", b)

	m.PickBlendStyle("pixel")
	_, b = m.BlendStyles()
	assert.Equal(t, "pixel", b, "other picks replace B")

	m.PickBlendStyle("anime")
	a, b = m.BlendStyles()
	assert.Empty(t, a, "picking A again clears it")
	assert.Equal(t, "pixel", b)
}

func TestModes_Selection(t *testing.T) {
	m := NewModes()
	assert.Nil(t, m.Selection())

	m.SetStyle("anime")
	m.SetModifier("at dusk")
	assert.Equal(t, SingleStyle{StyleID: "anime", Modifier: "at dusk"}, m.Selection())

	m.SetCustomPrompt("a castle")
	assert.Equal(t, CustomPrompt{Text: "a castle"}, m.Selection())

	m.SetBlend(true)
	assert.Nil(t, m.Selection(), "blend needs two styles")
	m.PickBlendStyle("anime")
	m.PickBlendStyle("oil")
	m.SetBlendRatio(150)
	assert.Equal(t, Blend{StyleA: "anime", StyleB: "oil", Ratio: 100}, m.Selection())

	m.SetBatch(true)
	assert.Nil(t, m.Selection(), "empty batch set")
	m.ToggleBatchStyle("pixel")
	assert.Equal(t, BatchSet{StyleIDs: []string{"pixel"}, Modifier: "at dusk"}, m.Selection())
}

func TestEnhancement_Apply(t *testing.T) {
	tests := []struct {
		name string
		e    Enhancement
		want string
	}{
		{"neutral", Enhancement{}, "base"},
		{"edge values are neutral", Enhancement{Vibrancy: 20, Mood: -20}, "base"},
		{"vibrant", Enhancement{Vibrancy: 21}, "base High vibrancy, saturated colors, vivid details."},
		{"muted", Enhancement{Vibrancy: -50}, "base Muted tones, desaturated palette, soft colors."},
		{"bright", Enhancement{Mood: 40}, "base Bright lighting, airy atmosphere, optimistic feel."},
		{"moody", Enhancement{Mood: -21}, "base Dark moody lighting, cinematic shadows, dramatic atmosphere."},
		{"both", Enhancement{Vibrancy: 30, Mood: 30}, "base High vibrancy, saturated colors, vivid details. Bright lighting, airy atmosphere, optimistic feel."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.Apply("base"))
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "submitting", StateSubmitting.String())
	assert.Equal(t, "rate_limited", StateRateLimited.String())
	assert.True(t, StateFailed.Settled())
	assert.False(t, StateIdle.Settled())
}
