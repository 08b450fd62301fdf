package network

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCeiling is the number of requests a server processes at once.
const DefaultCeiling = 1000

// Gate admits up to a fixed number of concurrent requests.
type Gate struct {
	sem      *semaphore.Weighted
	ceiling  int64
	inflight atomic.Int64
}

func NewGate(ceiling int64) *Gate {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	return &Gate{
		sem:     semaphore.NewWeighted(ceiling),
		ceiling: ceiling,
	}
}

// Ticket is held by an admitted request. Release may be called any
// number of times; only the first call frees the slot.
type Ticket struct {
	g    *Gate
	once sync.Once
}

// TryAdmit returns a ticket or nil if the gate is full. It never blocks.
func (g *Gate) TryAdmit() *Ticket {
	if !g.sem.TryAcquire(1) {
		return nil
	}

	g.inflight.Add(1)

	return &Ticket{g: g}
}

func (t *Ticket) Release() {
	t.once.Do(func() {
		t.g.inflight.Add(-1)
		t.g.sem.Release(1)
	})
}

// InFlight is the number of currently admitted requests.
func (g *Gate) InFlight() int64 {
	return g.inflight.Load()
}

func (g *Gate) Ceiling() int64 {
	return g.ceiling
}
