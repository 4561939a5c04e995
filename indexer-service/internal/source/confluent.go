package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
	pkglog "github.com/weiawesome/cdc-search/pkg/log"
)

// ConfluentConnector connects through librdkafka (confluent-kafka-go).
type ConfluentConnector struct {
	cfg Config
}

// Connect creates a consumer, checks that a broker answers a metadata
// request and subscribes to the configured topics.
func (cc *ConfluentConnector) Connect(ctx context.Context) (Source, error) {
	c, err := kafka.NewConsumer(confluentConfigMap(cc.cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	// NewConsumer does not touch the network; metadata does.
	if _, err := c.GetMetadata(nil, true, timeoutMs(cc.cfg.ConnectTimeout)); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to reach kafka brokers %s: %w", strings.Join(cc.cfg.Brokers, ","), err)
	}

	if err := c.SubscribeTopics(cc.cfg.Topics, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to topics %v: %w", cc.cfg.Topics, err)
	}

	l := pkglog.L()
	l.Info().
		Strs("topics", cc.cfg.Topics).
		Str("group", cc.cfg.GroupID).
		Str("driver", DriverConfluent).
		Msg("kafka consumer connected")

	return &ConfluentSource{
		consumer:    c,
		pollTimeout: cc.cfg.PollTimeout,
		maxRecords:  maxRecords(cc.cfg.MaxPollRecords),
	}, nil
}

func confluentConfigMap(cfg Config) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":     strings.Join(cfg.Brokers, ","),
		"group.id":              cfg.GroupID,
		"auto.offset.reset":     cfg.AutoOffsetReset,
		"enable.auto.commit":    false,
		"session.timeout.ms":    timeoutMs(cfg.SessionTimeout),
		"heartbeat.interval.ms": timeoutMs(cfg.HeartbeatInterval),
		"max.poll.interval.ms":  timeoutMs(cfg.MaxPollInterval),
	}
}

// ConfluentSource is a subscribed confluent-kafka-go consumer.
type ConfluentSource struct {
	consumer    *kafka.Consumer
	pollTimeout time.Duration
	maxRecords  int
}

// Poll blocks up to the poll timeout for the first record, then collects
// whatever else is already buffered. Records returned alongside an error
// are valid and should be processed first.
func (s *ConfluentSource) Poll(ctx context.Context) ([]domain.Message, error) {
	var out []domain.Message

	wait := s.pollTimeout
	for len(out) < s.maxRecords {
		if len(out) > 0 && ctx.Err() != nil {
			break
		}

		msg, err := s.consumer.ReadMessage(wait)
		if err != nil {
			if isTimeout(err) {
				break
			}
			return out, classifyConfluent(err)
		}

		out = append(out, fromConfluent(msg))
		// Only the first read waits; the rest drain the local queue.
		wait = 0
	}

	return out, nil
}

// Commit stores off+1, the next position to read, for off's partition.
func (s *ConfluentSource) Commit(_ context.Context, off domain.Offset) error {
	topic := off.Topic
	parts, err := s.consumer.CommitOffsets([]kafka.TopicPartition{{
		Topic:     &topic,
		Partition: off.Partition,
		Offset:    kafka.Offset(off.Position + 1),
	}})
	if err != nil {
		return fmt.Errorf("failed to commit %s: %w", off, err)
	}
	for _, p := range parts {
		if p.Error != nil {
			return fmt.Errorf("failed to commit %s: %w", off, p.Error)
		}
	}
	return nil
}

// Close leaves the consumer group and releases the connection.
func (s *ConfluentSource) Close() error {
	if err := s.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}

func fromConfluent(m *kafka.Message) domain.Message {
	var topic string
	if m.TopicPartition.Topic != nil {
		topic = *m.TopicPartition.Topic
	}
	return domain.Message{
		Offset: domain.Offset{
			Topic:     topic,
			Partition: m.TopicPartition.Partition,
			Position:  int64(m.TopicPartition.Offset),
		},
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
	}
}

func isTimeout(err error) bool {
	var kerr kafka.Error
	return errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut
}

// classifyConfluent marks fatal client errors as a lost connection.
// Everything else (broker transport hiccups, all brokers down) is retried
// by librdkafka itself and only needs a pause.
func classifyConfluent(err error) error {
	var kerr kafka.Error
	if errors.As(err, &kerr) && kerr.IsFatal() {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return fmt.Errorf("kafka poll: %w", err)
}

func timeoutMs(d time.Duration) int {
	return int(d / time.Millisecond)
}

func maxRecords(n int) int {
	if n <= 0 {
		return 500
	}
	return n
}
