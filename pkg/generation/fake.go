package generation

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryCounter is an in-process Counter for tests and local runs without Redis.
type MemoryCounter struct {
	mu   sync.Mutex
	vals map[string]int64
	err  error
}

// NewMemoryCounter creates an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{vals: make(map[string]int64)}
}

// FailWith makes every subsequent call return err (nil restores it).
func (m *MemoryCounter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	m.vals[key]++
	return redis.NewIntResult(m.vals[key], nil)
}

func (m *MemoryCounter) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.vals[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(v, 10), nil)
}
