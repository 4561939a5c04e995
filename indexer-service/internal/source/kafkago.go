package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
	pkglog "github.com/weiawesome/cdc-search/pkg/log"
)

// drainWait bounds how long Poll keeps collecting after the first record.
const drainWait = 5 * time.Millisecond

// KafkaGoConnector connects through the pure-Go segmentio/kafka-go client.
type KafkaGoConnector struct {
	cfg Config
}

// Connect dials the brokers once to fail fast, then starts a consumer-group reader.
func (kc *KafkaGoConnector) Connect(ctx context.Context) (Source, error) {
	dialer := &kafka.Dialer{Timeout: kc.cfg.ConnectTimeout}

	if err := dialBrokers(ctx, dialer, kc.cfg.Brokers); err != nil {
		return nil, err
	}

	rc := kafkaGoReaderConfig(kc.cfg, dialer)
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka reader config: %w", err)
	}

	l := pkglog.L()
	l.Info().
		Strs("topics", kc.cfg.Topics).
		Str("group", kc.cfg.GroupID).
		Str("driver", DriverKafkaGo).
		Msg("kafka consumer connected")

	return &KafkaGoSource{
		reader:      kafka.NewReader(rc),
		pollTimeout: kc.cfg.PollTimeout,
		maxRecords:  maxRecords(kc.cfg.MaxPollRecords),
	}, nil
}

func dialBrokers(ctx context.Context, dialer *kafka.Dialer, brokers []string) error {
	var errs []error
	for _, broker := range brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			conn.Close()
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("failed to reach kafka brokers %s: %w", strings.Join(brokers, ","), errors.Join(errs...))
}

func kafkaGoReaderConfig(cfg Config, dialer *kafka.Dialer) kafka.ReaderConfig {
	start := kafka.FirstOffset
	if strings.EqualFold(cfg.AutoOffsetReset, "latest") {
		start = kafka.LastOffset
	}
	return kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		StartOffset:       start,
		CommitInterval:    0, // synchronous commits only
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxWait:           cfg.PollTimeout,
		Dialer:            dialer,
	}
}

// KafkaGoSource is a consumer-group reader.
type KafkaGoSource struct {
	reader      *kafka.Reader
	pollTimeout time.Duration
	maxRecords  int
}

// Poll waits up to the poll timeout for one record and then briefly drains
// what the reader has already fetched.
func (s *KafkaGoSource) Poll(ctx context.Context) ([]domain.Message, error) {
	var out []domain.Message

	wait := s.pollTimeout
	for len(out) < s.maxRecords {
		fetchCtx, cancel := context.WithTimeout(ctx, wait)
		m, err := s.reader.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			// Timeout or shutdown: hand back what we have.
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return out, fmt.Errorf("%w: %v", ErrConnectionLost, err)
			}
			return out, fmt.Errorf("kafka fetch: %w", err)
		}

		out = append(out, fromKafkaGo(m))
		wait = drainWait
	}

	return out, nil
}

// Commit commits off; kafka-go stores off+1 as the group position.
func (s *KafkaGoSource) Commit(ctx context.Context, off domain.Offset) error {
	err := s.reader.CommitMessages(ctx, kafka.Message{
		Topic:     off.Topic,
		Partition: int(off.Partition),
		Offset:    off.Position,
	})
	if err != nil {
		return fmt.Errorf("failed to commit %s: %w", off, err)
	}
	return nil
}

// Close leaves the group and stops the reader.
func (s *KafkaGoSource) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}

func fromKafkaGo(m kafka.Message) domain.Message {
	return domain.Message{
		Offset: domain.Offset{
			Topic:     m.Topic,
			Partition: int32(m.Partition),
			Position:  m.Offset,
		},
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
	}
}
