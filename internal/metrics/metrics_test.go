package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_Concurrent(t *testing.T) {
	c := NewCounter("test_concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), c.Load())
}

func TestNewCounter_SameInstance(t *testing.T) {
	a := NewCounter("test_same")
	b := NewCounter("test_same")
	a.Add(3)

	assert.Equal(t, uint64(3), b.Load())
}

func TestSnapshot(t *testing.T) {
	NewCounter("test_snapshot").Add(2)

	snap := Snapshot()
	assert.Equal(t, uint64(2), snap["test_snapshot"])
}
