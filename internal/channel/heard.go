package channel

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"sync"
	"time"
)

const (
	HeardTimeout = 40 * time.Minute
	// DefaultHeardLimit bounds the heard table of a channel when no limit is
	// configured.
	DefaultHeardLimit = 50000
)

type HeardEntry struct {
	Time time.Time
	Path string
	// Paths holds distinct recent paths, newest first, when the channel
	// tracks path variants.
	Paths []string
}

// heardTable keeps the last time and path per station. Updates move an entry
// to the newest end so entries stay ordered by time and expiry can stop at
// the first entry that is still fresh.
type heardTable struct {
	mu       sync.Mutex
	entries  *simplelru.LRU[string, HeardEntry]
	horizon  time.Duration
	variants int
}

func newHeardTable(horizon time.Duration, variants, limit int) *heardTable {
	if limit <= 0 {
		limit = DefaultHeardLimit
	}
	entries, _ := simplelru.NewLRU[string, HeardEntry](limit, nil)
	return &heardTable{
		entries:  entries,
		horizon:  horizon,
		variants: variants,
	}
}

// put records call as heard now. It returns true when the table was full of
// fresh entries and the oldest one had to go before its horizon.
func (h *heardTable) put(call, path string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prune(now)

	e := HeardEntry{Time: now, Path: path}
	if h.variants > 1 {
		prev, _ := h.entries.Peek(call)
		e.Paths = mergePath(prev.Paths, path, h.variants)
	}
	return h.entries.Add(call, e)
}

func mergePath(paths []string, path string, limit int) []string {
	out := make([]string, 0, limit)
	out = append(out, path)
	for _, p := range paths {
		if len(out) == limit {
			break
		}
		if p != path {
			out = append(out, p)
		}
	}
	return out
}

// prune drops entries older than the horizon, oldest first.
func (h *heardTable) prune(now time.Time) {
	for {
		_, e, ok := h.entries.GetOldest()
		if !ok || now.Sub(e.Time) <= h.horizon {
			return
		}
		h.entries.RemoveOldest()
	}
}

func (h *heardTable) get(call string, now time.Time) (HeardEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prune(now)
	return h.entries.Peek(call)
}

func (h *heardTable) len(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prune(now)
	return h.entries.Len()
}
