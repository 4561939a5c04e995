package transform

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

func TestTopicToIndex(t *testing.T) {
	cases := map[string]string{
		"cdc.dbo.profiles":    "profiles",
		"cdc.dbo.Profiles":    "profiles",
		"server.public.USERS": "users",
		"orders":              "orders",
		"trailing.":           "",
	}
	for topic, want := range cases {
		assert.Equal(t, want, TopicToIndex(topic), "topic %q", topic)
	}
}

func TestTransform_UpsertOps(t *testing.T) {
	tr := New(nil)
	after := domain.Document{"id": "42", "name": "Ann"}

	for _, op := range []domain.Op{domain.OpCreate, domain.OpUpdate, domain.OpSnapshot} {
		got := tr.Transform("profiles", domain.ChangeEnvelope{Op: op, After: after})

		assert.Equal(t, domain.ActionUpsert, got.Kind, "op %s", op)
		assert.Equal(t, "profiles", got.Index)
		assert.Equal(t, "42", got.ID)
		assert.Equal(t, after, got.Body)
		assert.Empty(t, got.Reason)
	}
}

func TestTransform_Delete(t *testing.T) {
	tr := New(nil)

	got := tr.Transform("profiles", domain.ChangeEnvelope{
		Op:     domain.OpDelete,
		Before: domain.Document{"id": "42", "name": "Ann"},
	})

	assert.Equal(t, domain.Delete("profiles", "42"), got)
	assert.Nil(t, got.Body)
}

func TestTransform_SkipCases(t *testing.T) {
	tr := New(nil)

	cases := []struct {
		name   string
		env    domain.ChangeEnvelope
		reason string
	}{
		{"create without after", domain.ChangeEnvelope{Op: domain.OpCreate}, domain.SkipMissingImage},
		{"update with empty after", domain.ChangeEnvelope{Op: domain.OpUpdate, After: domain.Document{}}, domain.SkipMissingImage},
		{"delete without before", domain.ChangeEnvelope{Op: domain.OpDelete, After: domain.Document{"id": "1"}}, domain.SkipMissingImage},
		{"unknown op", domain.ChangeEnvelope{Op: "m", After: domain.Document{"id": "1"}}, domain.SkipUnknownOp},
		{"empty op", domain.ChangeEnvelope{}, domain.SkipUnknownOp},
		{"after without id", domain.ChangeEnvelope{Op: domain.OpCreate, After: domain.Document{"name": "Ann"}}, domain.SkipMissingID},
		{"before with null id", domain.ChangeEnvelope{Op: domain.OpDelete, Before: domain.Document{"id": nil}}, domain.SkipMissingID},
		{"blank id", domain.ChangeEnvelope{Op: domain.OpCreate, After: domain.Document{"id": "  "}}, domain.SkipMissingID},
		{"non-scalar id", domain.ChangeEnvelope{Op: domain.OpCreate, After: domain.Document{"id": []any{"1"}}}, domain.SkipMissingID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tr.Transform("profiles", tc.env)
			assert.Equal(t, domain.ActionSkip, got.Kind)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestDocumentID_FallbackAndTypes(t *testing.T) {
	tr := New(nil)

	id, ok := tr.DocumentID(domain.Document{"Id": "7"})
	require.True(t, ok)
	assert.Equal(t, "7", id)

	// "id" wins over "Id" when both are present.
	id, _ = tr.DocumentID(domain.Document{"id": "a", "Id": "b"})
	assert.Equal(t, "a", id)

	// Falls through an unusable "id" to "Id".
	id, ok = tr.DocumentID(domain.Document{"id": nil, "Id": "b"})
	require.True(t, ok)
	assert.Equal(t, "b", id)

	id, _ = tr.DocumentID(domain.Document{"id": json.Number("9007199254740993")})
	assert.Equal(t, "9007199254740993", id)

	id, _ = tr.DocumentID(domain.Document{"id": float64(12)})
	assert.Equal(t, "12", id)

	id, _ = tr.DocumentID(domain.Document{"id": int64(-3)})
	assert.Equal(t, "-3", id)
}

func TestNew_CustomIDFields(t *testing.T) {
	tr := New([]string{" profile_id ", "", "ID"})

	id, ok := tr.DocumentID(domain.Document{"id": "ignored", "ID": "X1"})
	require.True(t, ok)
	assert.Equal(t, "X1", id)

	_, ok = tr.DocumentID(domain.Document{"id": "ignored"})
	assert.False(t, ok)
}

func TestProcess_EndToEndScenarios(t *testing.T) {
	tr := New(nil)

	t.Run("create", func(t *testing.T) {
		got := tr.Process("cdc.dbo.profiles", []byte(`{"payload":{"op":"c","after":{"id":"42","name":"Ann"}}}`))
		assert.Equal(t, domain.Upsert("profiles", "42", domain.Document{"id": "42", "name": "Ann"}), got)
	})

	t.Run("delete", func(t *testing.T) {
		got := tr.Process("cdc.dbo.profiles", []byte(`{"payload":{"op":"d","before":{"id":"42"}}}`))
		assert.Equal(t, domain.Delete("profiles", "42"), got)
	})

	t.Run("empty payload", func(t *testing.T) {
		got := tr.Process("cdc.dbo.profiles", []byte(`{"payload":{}}`))
		assert.Equal(t, domain.ActionSkip, got.Kind)
		assert.Equal(t, domain.SkipUnknownOp, got.Reason)
	})

	t.Run("no payload key", func(t *testing.T) {
		got := tr.Process("cdc.dbo.profiles", []byte(`{"schema":{}}`))
		assert.Equal(t, domain.Skip(domain.SkipMissingPayload), got)
	})

	t.Run("numeric id from snapshot", func(t *testing.T) {
		got := tr.Process("cdc.dbo.profiles", []byte(`{"payload":{"op":"r","before":null,"after":{"id":42,"score":1.5}}}`))
		require.Equal(t, domain.ActionUpsert, got.Kind)
		assert.Equal(t, "42", got.ID)
		assert.Equal(t, json.Number("1.5"), got.Body["score"])
	})
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name   string
		value  string
		reason string
	}{
		{"empty", "", domain.SkipTombstone},
		{"null", "null", domain.SkipTombstone},
		{"garbage", "{not json", domain.SkipUndecodable},
		{"wrong payload type", `{"payload":"x"}`, domain.SkipUndecodable},
		{"missing payload", `{}`, domain.SkipMissingPayload},
		{"null payload", `{"payload":null}`, domain.SkipMissingPayload},
		{"ok", `{"payload":{"op":"u","before":{"id":"1"},"after":{"id":"1","v":2}}}`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, reason := Decode([]byte(tc.value))
			assert.Equal(t, tc.reason, reason)
		})
	}

	env, reason := Decode([]byte(`{"payload":{"op":"u","before":{"id":"1"},"after":{"id":"1","v":2}}}`))
	require.Empty(t, reason)
	assert.Equal(t, domain.OpUpdate, env.Op)
	assert.Equal(t, domain.Document{"id": "1"}, env.Before)
	assert.Equal(t, domain.Document{"id": "1", "v": json.Number("2")}, env.After)
}
