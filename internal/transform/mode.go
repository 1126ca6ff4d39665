package transform

import (
	"fmt"
	"strings"
	"sync"
)

// Mode selects which transform variant runs and which post effect follows.
type Mode int

const (
	Standard Mode = iota
	Foveated
	DepthOfField
	Anaglyph
	Stereo
	StereoUnwarp
)

// Modes lists every mode in key order.
var Modes = []Mode{Standard, Foveated, DepthOfField, Anaglyph, Stereo, StereoUnwarp}

var modeNames = map[Mode]string{
	Standard:     "standard",
	Foveated:     "foveated",
	DepthOfField: "dof",
	Anaglyph:     "anaglyph",
	Stereo:       "stereo",
	StereoUnwarp: "unwarp",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts the names printed by String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return Standard, fmt.Errorf("transform: unknown mode %q", s)
}

// IsStereo reports whether the mode renders one image per eye.
func (m Mode) IsStereo() bool {
	return m == Anaglyph || m == Stereo || m == StereoUnwarp
}

// Layout is the screen sharing arrangement of a stereo mode.
func (m Mode) Layout() StereoLayout {
	if m == Anaglyph {
		return SharedScreen
	}
	return SplitScreen
}

// Selector holds the current mode. It changes only through explicit calls
// and never touches pose state.
type Selector struct {
	mu       sync.Mutex
	mode     Mode
	onChange func(from, to Mode)
}

func NewSelector(initial Mode, onChange func(from, to Mode)) *Selector {
	return &Selector{mode: initial, onChange: onChange}
}

func (s *Selector) Current() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Switch sets the mode and reports whether it changed.
func (s *Selector) Switch(m Mode) bool {
	if _, ok := modeNames[m]; !ok {
		return false
	}
	s.mu.Lock()
	from := s.mode
	s.mode = m
	cb := s.onChange
	s.mu.Unlock()

	if from == m {
		return false
	}
	if cb != nil {
		cb(from, m)
	}
	return true
}

// HandleKey maps the digit keys '1'..'6' onto Modes.
func (s *Selector) HandleKey(key rune) bool {
	i := int(key - '1')
	if i < 0 || i >= len(Modes) {
		return false
	}
	return s.Switch(Modes[i])
}
