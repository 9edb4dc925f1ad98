package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing in-process counter. The dispatcher
// and ledger count dropped notifications and clamped movements with these;
// there is no exporter, callers read them via Snapshot.
type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

var (
	mu       sync.RWMutex
	registry = map[string]*Counter{}
)

// NewCounter returns the counter registered under name, creating it on
// first use. Safe for concurrent callers.
func NewCounter(name string) *Counter {
	mu.Lock()
	defer mu.Unlock()

	if c, ok := registry[name]; ok {
		return c
	}
	c := &Counter{}
	registry[name] = c
	return c
}

// Snapshot copies out the current value of every registered counter.
func Snapshot() map[string]uint64 {
	mu.RLock()
	defer mu.RUnlock()

	out := make(map[string]uint64, len(registry))
	for name, c := range registry {
		out[name] = c.Load()
	}
	return out
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
