package csvsql

import "slices"

// InputHistory records submitted input and walks it like a shell history.
// After Push the cursor sits past the newest entry, so Back returns it first.
type InputHistory struct {
	entries []string
	cursor  int
}

// NewInputHistory creates an empty history.
func NewInputHistory() *InputHistory {
	return &InputHistory{}
}

// Push appends entry and moves the cursor past it.
func (h *InputHistory) Push(entry string) {
	h.entries = append(h.entries, entry)
	h.cursor = len(h.entries)
}

// Back moves to the previous entry. It reports false at the oldest entry.
func (h *InputHistory) Back() (string, bool) {
	if h.cursor == 0 {
		return "", false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Forward moves to the next entry. Moving past the newest entry returns to
// fresh input and reports false.
func (h *InputHistory) Forward() (string, bool) {
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor], true
	}
	h.cursor = len(h.entries)
	return "", false
}

// Contains reports whether entry was pushed before.
func (h *InputHistory) Contains(entry string) bool {
	return slices.Contains(h.entries, entry)
}

// ResetCursor moves the cursor past the newest entry.
func (h *InputHistory) ResetCursor() {
	h.cursor = len(h.entries)
}

// Entries returns every entry, oldest first.
func (h *InputHistory) Entries() []string {
	return slices.Clone(h.entries)
}

// Len returns the number of entries.
func (h *InputHistory) Len() int {
	return len(h.entries)
}
