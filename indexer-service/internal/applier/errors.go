package applier

import (
	"fmt"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

// ApplyError is returned when the index store rejects or fails a mutation.
// Status is the HTTP status of the store response, 0 for transport errors.
type ApplyError struct {
	Kind   domain.ActionKind
	Index  string
	ID     string
	Status int
	Err    error
}

func (e *ApplyError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s/%s: status %d: %v", e.Kind, e.Index, e.ID, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Kind, e.Index, e.ID, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
