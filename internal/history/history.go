// Package history keeps the ordered list of image snapshots produced by an
// editing session together with the current position in that list.
package history

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNothingToUndo is returned by Undo when the position is already at the original.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo when the position is already at the newest entry.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Snapshot is an immutable encoded image. The blob is copied when a snapshot
// enters a History and when callers ask for its bytes.
type Snapshot struct {
	ID      string
	MIME    string
	Width   int
	Height  int
	Label   string
	Created time.Time

	data []byte
}

// NewSnapshot builds a snapshot that owns a private copy of data.
func NewSnapshot(data []byte, mime string, width, height int, label string) Snapshot {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Snapshot{
		ID:      uuid.NewString(),
		MIME:    mime,
		Width:   width,
		Height:  height,
		Label:   label,
		Created: time.Now(),
		data:    buf,
	}
}

// Bytes returns a copy of the encoded image.
func (s Snapshot) Bytes() []byte {
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// Size returns the length of the encoded blob.
func (s Snapshot) Size() int { return len(s.data) }

// IsZero reports whether the snapshot carries no image data.
func (s Snapshot) IsZero() bool { return len(s.data) == 0 }

// History is an undoable sequence of snapshots. Entry 0 is the original image.
type History struct {
	mu      sync.RWMutex
	entries []Snapshot
	pos     int
}

// New starts a history whose original entry is s.
func New(original Snapshot) *History {
	return &History{entries: []Snapshot{original}}
}

// Push drops every entry after the current position and appends s.
func (h *History) Push(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.pos+1:h.pos+1], s)
	h.pos = len(h.entries) - 1
}

// Undo moves one step back and returns the snapshot now current.
func (h *History) Undo() (Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos == 0 {
		return h.entries[h.pos], ErrNothingToUndo
	}
	h.pos--
	return h.entries[h.pos], nil
}

// Redo moves one step forward and returns the snapshot now current.
func (h *History) Redo() (Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos >= len(h.entries)-1 {
		return h.entries[h.pos], ErrNothingToRedo
	}
	h.pos++
	return h.entries[h.pos], nil
}

// Reset jumps back to the original. Later entries stay available to Redo.
func (h *History) Reset() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = 0
	return h.entries[0]
}

// Current returns the snapshot at the current position.
func (h *History) Current() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[h.pos]
}

// Original returns the first snapshot.
func (h *History) Original() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[0]
}

// Position returns the index of the current snapshot.
func (h *History) Position() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pos
}

// Len returns the number of stored snapshots, including redo entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *History) CanUndo() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pos > 0
}

func (h *History) CanRedo() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pos < len(h.entries)-1
}

// Entries returns a copy of the stored snapshots in order.
func (h *History) Entries() []Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Snapshot, len(h.entries))
	copy(out, h.entries)
	return out
}
