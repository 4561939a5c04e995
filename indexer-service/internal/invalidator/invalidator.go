// Package invalidator tells the search service's cache that an index changed.
package invalidator

import (
	"context"
	"time"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
	pkglog "github.com/weiawesome/cdc-search/pkg/log"
)

// Bumper advances an index's generation.
type Bumper interface {
	Bump(ctx context.Context, index string) (int64, error)
}

// Invalidator bumps the generation of every index a change was applied to.
// A nil *Invalidator is valid and does nothing.
type Invalidator struct {
	gen     Bumper
	timeout time.Duration
}

// New creates an Invalidator. Each bump is bounded by timeout.
func New(gen Bumper, timeout time.Duration) *Invalidator {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Invalidator{gen: gen, timeout: timeout}
}

// Invalidate records that action changed its index. Skips are ignored.
// Errors are logged and returned; they never affect the commit of the event.
func (i *Invalidator) Invalidate(ctx context.Context, action domain.IndexAction) error {
	if i == nil || i.gen == nil || action.Kind == domain.ActionSkip {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	gen, err := i.gen.Bump(ctx, action.Index)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).
			Str(pkglog.FieldIndex, action.Index).
			Msg("cache invalidation failed")
		return err
	}

	l := pkglog.Ctx(ctx)
	l.Trace().
		Str(pkglog.FieldIndex, action.Index).
		Int64("generation", gen).
		Msg("cache generation bumped")
	return nil
}
