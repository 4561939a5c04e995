package applier

import (
	"context"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

// Applier applies one index action to the index store.
//
// Upserts replace the whole document and deletes of absent documents
// succeed, so applying the same action again is harmless. Implementations
// do not retry; a failed action is retried through broker redelivery.
type Applier interface {
	Apply(ctx context.Context, action domain.IndexAction) error
}
