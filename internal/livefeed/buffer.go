package livefeed

import (
	"slices"

	"bltp/internal/market"
)

// DefaultCapacity is the number of updates a Buffer keeps.
const DefaultCapacity = 20

// LiveUpdate is one instrument's freshly observed metrics.
type LiveUpdate struct {
	BondID     string       `json:"bondId"`
	Liquidity  int          `json:"liquidity"`
	Yield      float64      `json:"yield"`
	Volume     string       `json:"volume"` // display string, e.g. "₹45L"
	Trend      market.Trend `json:"trend"`
	TrendValue string       `json:"trendValue"` // e.g. "+2.3%"
	Timestamp  int64        `json:"timestamp"`  // unix ms
}

// Buffer holds at most one update per key, newest first, bounded by
// capacity. It is not safe for concurrent use.
type Buffer struct {
	capacity int
	entries  []LiveUpdate
}

func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity, entries: make([]LiveUpdate, 0, capacity)}
}

// Insert drops any entry with the same key, prepends u and evicts the
// oldest entries beyond capacity.
func (b *Buffer) Insert(u LiveUpdate) {
	b.entries = slices.DeleteFunc(b.entries, func(e LiveUpdate) bool {
		return e.BondID == u.BondID
	})
	b.entries = slices.Insert(b.entries, 0, u)
	if len(b.entries) > b.capacity {
		clear(b.entries[b.capacity:])
		b.entries = b.entries[:b.capacity]
	}
}

// Latest returns the newest update for key.
func (b *Buffer) Latest(key string) (LiveUpdate, bool) {
	for _, e := range b.entries {
		if e.BondID == key {
			return e, true
		}
	}
	return LiveUpdate{}, false
}

// Entries returns a copy of the buffer, newest first.
func (b *Buffer) Entries() []LiveUpdate {
	return slices.Clone(b.entries)
}

func (b *Buffer) Len() int {
	return len(b.entries)
}
