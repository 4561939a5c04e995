// Package transform maps raw CDC envelopes onto index actions.
//
// Nothing in here fails: anything that cannot be turned into an upsert or a
// delete becomes a Skip so one bad row never stalls a partition.
package transform

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

// DefaultIDFields is the identifier lookup order used when none is configured.
var DefaultIDFields = []string{"id", "Id"}

// Transformer turns envelopes into index actions.
type Transformer struct {
	idFields []string
}

// New creates a Transformer that looks up document ids in idFields, in order.
func New(idFields []string) *Transformer {
	fields := make([]string, 0, len(idFields))
	for _, f := range idFields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		fields = DefaultIDFields
	}
	return &Transformer{idFields: fields}
}

// TopicToIndex derives the index name from a topic: the lower-cased last
// dot-delimited segment ("cdc.dbo.Profiles" -> "profiles").
func TopicToIndex(topic string) string {
	if i := strings.LastIndexByte(topic, '.'); i >= 0 {
		topic = topic[i+1:]
	}
	return strings.ToLower(topic)
}

// Process decodes a raw record value from topic and transforms it.
func (t *Transformer) Process(topic string, value []byte) domain.IndexAction {
	env, reason := Decode(value)
	if reason != "" {
		return domain.Skip(reason)
	}
	return t.Transform(TopicToIndex(topic), env)
}

// Transform maps one envelope onto an action against index.
func (t *Transformer) Transform(index string, env domain.ChangeEnvelope) domain.IndexAction {
	switch {
	case env.Op.IsUpsert():
		if len(env.After) == 0 {
			return domain.Skip(domain.SkipMissingImage)
		}
		id, ok := t.DocumentID(env.After)
		if !ok {
			return domain.Skip(domain.SkipMissingID)
		}
		return domain.Upsert(index, id, env.After)

	case env.Op == domain.OpDelete:
		if len(env.Before) == 0 {
			return domain.Skip(domain.SkipMissingImage)
		}
		id, ok := t.DocumentID(env.Before)
		if !ok {
			return domain.Skip(domain.SkipMissingID)
		}
		return domain.Delete(index, id)

	default:
		return domain.Skip(domain.SkipUnknownOp)
	}
}

// DocumentID returns the first configured identifier with a usable scalar value.
func (t *Transformer) DocumentID(doc domain.Document) (string, bool) {
	for _, field := range t.idFields {
		if id, ok := scalarString(doc[field]); ok {
			return id, true
		}
	}
	return "", false
}

func scalarString(v any) (string, bool) {
	var s string
	switch id := v.(type) {
	case string:
		s = id
	case json.Number:
		s = id.String()
	case float64:
		s = strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		s = strconv.Itoa(id)
	case int64:
		s = strconv.FormatInt(id, 10)
	case bool:
		s = strconv.FormatBool(id)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
