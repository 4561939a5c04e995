package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService = "service"

	// Change stream position (matches domain.Offset)
	FieldTopic     = "topic"
	FieldPartition = "partition"
	FieldOffset    = "offset"

	// Index target
	FieldIndex  = "index"
	FieldDocID  = "doc_id"
	FieldAction = "action"
)
