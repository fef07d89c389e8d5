package classify

import "github.com/pvolkov/tome/internal/providers"

// DefaultHistoryWindow keeps the last 10 entries (about 5 pages of
// user/assistant pairs) of rolling context.
const DefaultHistoryWindow = 10

// History is the bounded rolling conversation window a single run owns.
// It is never shared across runs, so it needs no locking. Entries are
// text-only: prior page images are dropped to bound request size while the
// model still sees its own recent verdicts.
type History struct {
	entries []providers.Message
	max     int
}

// NewHistory creates a history keeping at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistoryWindow
	}
	return &History{max: max}
}

// Add appends an entry, evicting the oldest beyond the window.
func (h *History) Add(role, content string) {
	h.entries = append(h.entries, providers.Message{Role: role, Content: content})
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Messages returns a copy of the current window.
func (h *History) Messages() []providers.Message {
	out := make([]providers.Message, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries currently held.
func (h *History) Len() int {
	return len(h.entries)
}
