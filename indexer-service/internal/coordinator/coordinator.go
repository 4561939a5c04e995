// Package coordinator decides which offsets may be committed to the broker.
package coordinator

import (
	"context"
	"sync"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
	pkglog "github.com/weiawesome/cdc-search/pkg/log"
)

// Committer durably records consumption progress.
type Committer interface {
	Commit(ctx context.Context, off domain.Offset) error
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, off domain.Offset) error

func (f CommitterFunc) Commit(ctx context.Context, off domain.Offset) error {
	return f(ctx, off)
}

// Coordinator commits an offset only after its event was applied.
//
// Broker commits are cumulative per partition, so committing a later
// offset would implicitly acknowledge an earlier failed one. Once an event
// fails, its partition is pinned and no further commits are issued for it
// in this session; the broker redelivers from the pinned offset next time.
type Coordinator struct {
	committer Committer

	mu        sync.Mutex
	committed map[domain.PartitionKey]int64
	pinned    map[domain.PartitionKey]int64
}

// New creates a Coordinator that commits through c.
func New(c Committer) *Coordinator {
	return &Coordinator{
		committer: c,
		committed: make(map[domain.PartitionKey]int64),
		pinned:    make(map[domain.PartitionKey]int64),
	}
}

// SetCommitter swaps the underlying committer (after a reconnect) and
// forgets per-partition state from the previous session.
func (c *Coordinator) SetCommitter(committer Committer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committer = committer
	c.committed = make(map[domain.PartitionKey]int64)
	c.pinned = make(map[domain.PartitionKey]int64)
}

// Commit records that off has been applied. It reports whether a broker
// commit was actually issued: commits for pinned partitions and for offsets
// at or before the last committed one are dropped.
func (c *Coordinator) Commit(ctx context.Context, off domain.Offset) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := off.Key()
	if at, ok := c.pinned[key]; ok {
		l := pkglog.L()
		l.Debug().
			Str(pkglog.FieldTopic, off.Topic).
			Int32(pkglog.FieldPartition, off.Partition).
			Int64(pkglog.FieldOffset, off.Position).
			Int64("pinned_at", at).
			Msg("commit suppressed, partition pinned")
		return false, nil
	}
	if last, ok := c.committed[key]; ok && off.Position <= last {
		return false, nil
	}

	if err := c.committer.Commit(ctx, off); err != nil {
		return false, err
	}
	c.committed[key] = off.Position
	return true, nil
}

// Withhold pins off's partition at off. The earliest failure wins.
func (c *Coordinator) Withhold(off domain.Offset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := off.Key()
	if at, ok := c.pinned[key]; ok && at <= off.Position {
		return
	}
	c.pinned[key] = off.Position
}

// Pinned returns the pinned offset per partition.
func (c *Coordinator) Pinned() []domain.Offset {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Offset, 0, len(c.pinned))
	for k, pos := range c.pinned {
		out = append(out, domain.Offset{Topic: k.Topic, Partition: k.Partition, Position: pos})
	}
	return out
}

// Committed returns the last committed position for a partition.
func (c *Coordinator) Committed(topic string, partition int32) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.committed[domain.PartitionKey{Topic: topic, Partition: partition}]
	return pos, ok
}
