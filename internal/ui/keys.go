package ui

import (
	"unicode"

	"golang.org/x/mobile/event/key"
)

// KeyShortcut describes a keyboard combination that triggers an action.
// Printable keys are matched by Rune, the rest by Code.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// KeyboardShortcuts returns the shortcuts associated with an action.
type KeyboardShortcuts interface {
	KeyboardShortcuts() []KeyShortcut
}

// shortcutList is a helper to easily satisfy the KeyboardShortcuts interface.
type shortcutList []KeyShortcut

func (s shortcutList) KeyboardShortcuts() []KeyShortcut { return []KeyShortcut(s) }

// keymap binds shortcuts to named actions.
type keymap struct {
	actions map[string]func()
	keys    map[KeyShortcut]string
}

func newKeymap() *keymap {
	return &keymap{actions: map[string]func(){}, keys: map[KeyShortcut]string{}}
}

func (m *keymap) register(name string, keys KeyboardShortcuts, fn func()) {
	m.actions[name] = fn
	if keys != nil {
		for _, sc := range keys.KeyboardShortcuts() {
			if sc.Rune > 0 {
				sc.Rune = unicode.ToLower(sc.Rune)
			}
			m.keys[sc] = name
		}
	}
}

// lookup resolves a key press. Shift is ignored for printable keys because
// it is already reflected in the rune.
func (m *keymap) lookup(e key.Event) (string, bool) {
	if e.Rune > 0 {
		mods := e.Modifiers &^ key.ModShift
		if name, ok := m.keys[KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: mods}]; ok {
			return name, true
		}
	}
	name, ok := m.keys[KeyShortcut{Code: e.Code, Modifiers: e.Modifiers}]
	return name, ok
}

func (m *keymap) run(name string) bool {
	fn, ok := m.actions[name]
	if ok {
		fn()
	}
	return ok
}
