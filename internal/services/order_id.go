package services

import (
	"sync"
	"time"
)

// orderIDs hands out Unix-millisecond order ids. When the clock has not moved
// past the last id the next one is last+1, so ids stay unique within the
// process and still sort by creation time.
type orderIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (g *orderIDs) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
