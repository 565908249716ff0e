package editor

import (
	"fmt"
	"strings"
)

// Mode is the active tool of a session.
type Mode int

const (
	ModeView Mode = iota
	ModeRetouch
	ModeErase
	ModeCrop
	ModeAdjust
	ModeFilter
)

var modeNames = []string{"view", "retouch", "erase", "crop", "adjust", "filter"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode converts a tool name to a Mode.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return ModeView, fmt.Errorf("unknown mode %q", s)
}
