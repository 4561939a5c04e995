package domain

import (
	"fmt"
	"time"
)

// Offset is a position in one partition of the change log.
type Offset struct {
	Topic     string
	Partition int32
	Position  int64
}

func (o Offset) String() string {
	return fmt.Sprintf("%s[%d]@%d", o.Topic, o.Partition, o.Position)
}

// PartitionKey identifies the partition an offset belongs to.
type PartitionKey struct {
	Topic     string
	Partition int32
}

// Key returns the partition the offset belongs to.
func (o Offset) Key() PartitionKey {
	return PartitionKey{Topic: o.Topic, Partition: o.Partition}
}

// Message is one raw record pulled from the broker.
type Message struct {
	Offset    Offset
	Key       []byte
	Value     []byte
	Timestamp time.Time
}
