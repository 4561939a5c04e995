package invalidator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
	"github.com/weiawesome/cdc-search/pkg/generation"
)

func TestInvalidate_BumpsChangedIndex(t *testing.T) {
	ctx := context.Background()
	mc := generation.NewMemoryCounter()
	store := generation.New(mc, "search")
	inv := New(store, time.Second)

	require.NoError(t, inv.Invalidate(ctx, domain.Upsert("profiles", "1", domain.Document{"id": "1"})))
	require.NoError(t, inv.Invalidate(ctx, domain.Delete("profiles", "1")))

	n, err := store.Current(ctx, "profiles")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestInvalidate_IgnoresSkip(t *testing.T) {
	ctx := context.Background()
	store := generation.New(generation.NewMemoryCounter(), "search")
	inv := New(store, time.Second)

	require.NoError(t, inv.Invalidate(ctx, domain.Skip(domain.SkipUnknownOp)))

	n, err := store.Current(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInvalidate_ReturnsError(t *testing.T) {
	mc := generation.NewMemoryCounter()
	mc.FailWith(errors.New("redis down"))
	inv := New(generation.New(mc, "search"), 0)

	err := inv.Invalidate(context.Background(), domain.Delete("profiles", "1"))
	assert.Error(t, err)
}

func TestInvalidate_NilIsNoop(t *testing.T) {
	var inv *Invalidator
	assert.NoError(t, inv.Invalidate(context.Background(), domain.Delete("profiles", "1")))
}
