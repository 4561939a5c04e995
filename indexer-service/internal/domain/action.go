package domain

// ActionKind tags an IndexAction.
type ActionKind int

const (
	ActionSkip ActionKind = iota
	ActionUpsert
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionUpsert:
		return "upsert"
	case ActionDelete:
		return "delete"
	default:
		return "skip"
	}
}

// Skip reasons.
const (
	SkipMissingPayload = "missing_payload"
	SkipTombstone      = "tombstone"
	SkipUndecodable    = "undecodable"
	SkipUnknownOp      = "unknown_op"
	SkipMissingImage   = "missing_image"
	SkipMissingID      = "missing_id"
)

// IndexAction is what the applier has to do for one event.
// Body is only set for upserts, Reason only for skips.
type IndexAction struct {
	Kind   ActionKind
	Index  string
	ID     string
	Body   Document
	Reason string
}

// Upsert builds a full-document write.
func Upsert(index, id string, body Document) IndexAction {
	return IndexAction{Kind: ActionUpsert, Index: index, ID: id, Body: body}
}

// Delete builds a document removal.
func Delete(index, id string) IndexAction {
	return IndexAction{Kind: ActionDelete, Index: index, ID: id}
}

// Skip builds a no-op action.
func Skip(reason string) IndexAction {
	return IndexAction{Kind: ActionSkip, Reason: reason}
}
