package domain

// Op is the CDC operation code carried in an envelope payload.
type Op string

const (
	OpCreate   Op = "c"
	OpUpdate   Op = "u"
	OpSnapshot Op = "r" // row emitted by an initial snapshot read
	OpDelete   Op = "d"
)

// Document is one row image. Numbers are kept as json.Number so ids and
// large integers are written to the index exactly as captured.
type Document map[string]any

// ChangeEnvelope is one captured row mutation.
type ChangeEnvelope struct {
	Op     Op
	Before Document
	After  Document
}

// IsUpsert reports whether the op produces (or refreshes) a document.
func (o Op) IsUpsert() bool {
	return o == OpCreate || o == OpUpdate || o == OpSnapshot
}
