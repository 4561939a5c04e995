package transform

import (
	"bytes"

	"github.com/goccy/go-json"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

type wireEnvelope struct {
	Payload *wirePayload `json:"payload"`
}

type wirePayload struct {
	Op     string          `json:"op"`
	Before domain.Document `json:"before"`
	After  domain.Document `json:"after"`
}

// Decode parses a record value of the form
// {"payload": {"op": "c", "before": {...}, "after": {...}}}.
// A non-empty reason means the record carries nothing to apply.
func Decode(value []byte) (domain.ChangeEnvelope, string) {
	if len(bytes.TrimSpace(value)) == 0 || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return domain.ChangeEnvelope{}, domain.SkipTombstone
	}

	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var w wireEnvelope
	if err := dec.Decode(&w); err != nil {
		return domain.ChangeEnvelope{}, domain.SkipUndecodable
	}
	if w.Payload == nil {
		return domain.ChangeEnvelope{}, domain.SkipMissingPayload
	}

	return domain.ChangeEnvelope{
		Op:     domain.Op(w.Payload.Op),
		Before: w.Payload.Before,
		After:  w.Payload.After,
	}, ""
}
