package fusion

import "sync"

// DefaultHistorySize bounds the decisions kept per instrument
const DefaultHistorySize = 100

// history is a bounded per-instrument decision log, oldest evicted first
type history struct {
	mu    sync.RWMutex
	limit int
	items []Decision
}

func newHistory(limit int) *history {
	return &history{limit: limit, items: make([]Decision, 0, limit)}
}

func (h *history) append(d Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, d)
	if over := len(h.items) - h.limit; over > 0 {
		h.items = append(h.items[:0], h.items[over:]...)
	}
}

func (h *history) list() []Decision {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Decision, len(h.items))
	copy(out, h.items)
	return out
}

func (h *history) last() (Decision, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.items) == 0 {
		return Decision{}, false
	}
	return h.items[len(h.items)-1], true
}
