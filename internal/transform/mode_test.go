package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeNamesRoundTrip(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("  DoF ")
	require.NoError(t, err)
	assert.Equal(t, DepthOfField, got)

	_, err = ParseMode("hologram")
	assert.Error(t, err)
	assert.Equal(t, "mode(42)", Mode(42).String())
}

func TestModeStereoAndLayout(t *testing.T) {
	assert.False(t, Standard.IsStereo())
	assert.False(t, Foveated.IsStereo())
	assert.False(t, DepthOfField.IsStereo())
	assert.True(t, Anaglyph.IsStereo())
	assert.True(t, Stereo.IsStereo())
	assert.True(t, StereoUnwarp.IsStereo())

	assert.Equal(t, SharedScreen, Anaglyph.Layout())
	assert.Equal(t, SplitScreen, StereoUnwarp.Layout())
}

func TestSelectorHandleKey(t *testing.T) {
	var changes [][2]Mode
	s := NewSelector(Standard, func(from, to Mode) {
		changes = append(changes, [2]Mode{from, to})
	})

	assert.True(t, s.HandleKey('4'))
	assert.Equal(t, Anaglyph, s.Current())
	assert.False(t, s.HandleKey('4'), "same mode is not a change")
	assert.False(t, s.HandleKey('9'))
	assert.False(t, s.HandleKey('0'))
	assert.True(t, s.HandleKey('6'))
	assert.Equal(t, StereoUnwarp, s.Current())
	assert.False(t, s.Switch(Mode(-1)))

	assert.Equal(t, [][2]Mode{{Standard, Anaglyph}, {Anaglyph, StereoUnwarp}}, changes)
}
