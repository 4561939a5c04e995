// Package source pulls raw CDC records from the broker.
//
// Offsets are never committed automatically: the caller commits each
// record's offset once it has been applied, which gives at-least-once
// delivery across crashes and restarts.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

// ErrConnectionLost marks poll errors that mean the broker connection itself
// is unusable and has to be re-established.
var ErrConnectionLost = errors.New("broker connection lost")

// Source is a connected, subscribed consumer.
type Source interface {
	// Poll waits at most the configured poll timeout for records and
	// returns whatever is available, possibly nothing.
	Poll(ctx context.Context) ([]domain.Message, error)
	// Commit durably records that off has been processed.
	Commit(ctx context.Context, off domain.Offset) error
	Close() error
}

// Connector establishes a new Source. Each call is one connection attempt.
type Connector interface {
	Connect(ctx context.Context) (Source, error)
}

// Config holds the broker consumer settings shared by both drivers.
type Config struct {
	Driver            string        `mapstructure:"driver"` // "confluent", "kafkago"
	Brokers           []string      `mapstructure:"brokers"`
	GroupID           string        `mapstructure:"group_id"`
	Topics            []string      `mapstructure:"topics"`
	AutoOffsetReset   string        `mapstructure:"auto_offset_reset"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxPollInterval   time.Duration `mapstructure:"max_poll_interval"`
	PollTimeout       time.Duration `mapstructure:"poll_timeout"`
	MaxPollRecords    int           `mapstructure:"max_poll_records"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
}

const (
	DriverConfluent = "confluent"
	DriverKafkaGo   = "kafkago"
)

// NewConnector returns the connector for cfg.Driver.
func NewConnector(cfg Config) (Connector, error) {
	switch cfg.Driver {
	case DriverConfluent, "":
		return &ConfluentConnector{cfg: cfg}, nil
	case DriverKafkaGo:
		return &KafkaGoConnector{cfg: cfg}, nil
	default:
		return nil, errors.New("unknown kafka driver: " + cfg.Driver)
	}
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Source, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Source, error) {
	return f(ctx)
}
