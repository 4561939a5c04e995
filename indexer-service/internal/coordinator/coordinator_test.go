package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

type recordingCommitter struct {
	commits []domain.Offset
	err     error
}

func (r *recordingCommitter) Commit(_ context.Context, off domain.Offset) error {
	if r.err != nil {
		return r.err
	}
	r.commits = append(r.commits, off)
	return nil
}

func off(partition int32, pos int64) domain.Offset {
	return domain.Offset{Topic: "cdc.dbo.profiles", Partition: partition, Position: pos}
}

func TestCommit_ForwardsInOrder(t *testing.T) {
	rc := &recordingCommitter{}
	c := New(rc)
	ctx := context.Background()

	for _, o := range []domain.Offset{off(0, 1), off(0, 2), off(1, 1)} {
		ok, err := c.Commit(ctx, o)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, []domain.Offset{off(0, 1), off(0, 2), off(1, 1)}, rc.commits)

	pos, ok := c.Committed("cdc.dbo.profiles", 0)
	require.True(t, ok)
	assert.Equal(t, int64(2), pos)
}

func TestCommit_NeverMovesBackwards(t *testing.T) {
	rc := &recordingCommitter{}
	c := New(rc)
	ctx := context.Background()

	_, _ = c.Commit(ctx, off(0, 5))
	ok, err := c.Commit(ctx, off(0, 5))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = c.Commit(ctx, off(0, 3))
	assert.False(t, ok)

	assert.Len(t, rc.commits, 1)
}

func TestWithhold_PinsPartition(t *testing.T) {
	rc := &recordingCommitter{}
	c := New(rc)
	ctx := context.Background()

	_, _ = c.Commit(ctx, off(0, 1))
	c.Withhold(off(0, 2))

	ok, err := c.Commit(ctx, off(0, 3))
	require.NoError(t, err)
	assert.False(t, ok, "later offset must not acknowledge the failed one")

	// Other partitions are unaffected.
	ok, _ = c.Commit(ctx, off(1, 3))
	assert.True(t, ok)

	assert.Equal(t, []domain.Offset{off(0, 1), off(1, 3)}, rc.commits)
	assert.Equal(t, []domain.Offset{off(0, 2)}, c.Pinned())
}

func TestWithhold_EarliestFailureWins(t *testing.T) {
	c := New(&recordingCommitter{})

	c.Withhold(off(0, 8))
	c.Withhold(off(0, 4))
	c.Withhold(off(0, 6))

	assert.Equal(t, []domain.Offset{off(0, 4)}, c.Pinned())
}

func TestCommit_ErrorDoesNotAdvance(t *testing.T) {
	rc := &recordingCommitter{err: errors.New("coordinator not available")}
	c := New(rc)

	ok, err := c.Commit(context.Background(), off(0, 1))
	assert.Error(t, err)
	assert.False(t, ok)

	_, committed := c.Committed("cdc.dbo.profiles", 0)
	assert.False(t, committed)
}

func TestSetCommitter_ResetsSession(t *testing.T) {
	first := &recordingCommitter{}
	c := New(first)
	ctx := context.Background()

	_, _ = c.Commit(ctx, off(0, 5))
	c.Withhold(off(1, 2))

	second := &recordingCommitter{}
	c.SetCommitter(second)

	assert.Empty(t, c.Pinned())

	// A rebalanced/redelivered offset can be committed again in the new session.
	ok, err := c.Commit(ctx, off(0, 5))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = c.Commit(ctx, off(1, 3))
	assert.True(t, ok)
	assert.Len(t, second.commits, 2)
}

func TestCommitterFunc(t *testing.T) {
	var got domain.Offset
	c := New(CommitterFunc(func(_ context.Context, o domain.Offset) error {
		got = o
		return nil
	}))

	_, err := c.Commit(context.Background(), off(2, 9))
	require.NoError(t, err)
	assert.Equal(t, off(2, 9), got)
}
