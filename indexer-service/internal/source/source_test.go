package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

func testConfig() Config {
	return Config{
		Brokers:           []string{"127.0.0.1:1"},
		GroupID:           "opensearch-indexer",
		Topics:            []string{"cdc.dbo.profiles"},
		AutoOffsetReset:   "earliest",
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		MaxPollInterval:   5 * time.Minute,
		PollTimeout:       5 * time.Second,
		MaxPollRecords:    500,
		ConnectTimeout:    200 * time.Millisecond,
	}
}

func TestNewConnector(t *testing.T) {
	cfg := testConfig()

	c, err := NewConnector(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ConfluentConnector{}, c)

	cfg.Driver = DriverKafkaGo
	c, err = NewConnector(cfg)
	require.NoError(t, err)
	assert.IsType(t, &KafkaGoConnector{}, c)

	cfg.Driver = "amqp"
	_, err = NewConnector(cfg)
	assert.Error(t, err)
}

func TestConfluentConfigMap_ManualCommit(t *testing.T) {
	cm := confluentConfigMap(testConfig())

	get := func(key string) kafka.ConfigValue {
		v, err := cm.Get(key, nil)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, false, get("enable.auto.commit"))
	assert.Equal(t, "127.0.0.1:1", get("bootstrap.servers"))
	assert.Equal(t, "opensearch-indexer", get("group.id"))
	assert.Equal(t, "earliest", get("auto.offset.reset"))
	assert.Equal(t, 30000, get("session.timeout.ms"))
	assert.Equal(t, 10000, get("heartbeat.interval.ms"))
	assert.Equal(t, 300000, get("max.poll.interval.ms"))
}

func TestFromConfluent(t *testing.T) {
	topic := "cdc.dbo.profiles"
	ts := time.Unix(1700000000, 0)

	got := fromConfluent(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 3, Offset: 17},
		Key:            []byte("k"),
		Value:          []byte(`{"payload":{}}`),
		Timestamp:      ts,
	})

	assert.Equal(t, domain.Offset{Topic: topic, Partition: 3, Position: 17}, got.Offset)
	assert.Equal(t, []byte("k"), got.Key)
	assert.Equal(t, ts, got.Timestamp)

	// Nil topic pointer does not panic.
	assert.Empty(t, fromConfluent(&kafka.Message{}).Offset.Topic)
}

func TestClassifyConfluent(t *testing.T) {
	fatal := kafka.NewError(kafka.ErrFatal, "fenced", true)
	assert.ErrorIs(t, classifyConfluent(fatal), ErrConnectionLost)

	transient := kafka.NewError(kafka.ErrAllBrokersDown, "all brokers down", false)
	err := classifyConfluent(transient)
	assert.NotErrorIs(t, err, ErrConnectionLost)
	assert.Contains(t, err.Error(), "kafka poll")

	assert.True(t, isTimeout(kafka.NewError(kafka.ErrTimedOut, "timeout", false)))
	assert.False(t, isTimeout(errors.New("other")))
}

func TestKafkaGoReaderConfig(t *testing.T) {
	cfg := testConfig()
	rc := kafkaGoReaderConfig(cfg, &kafkago.Dialer{})

	require.NoError(t, rc.Validate())
	assert.Equal(t, kafkago.FirstOffset, rc.StartOffset)
	assert.Equal(t, cfg.Topics, rc.GroupTopics)
	assert.Zero(t, rc.CommitInterval)

	cfg.AutoOffsetReset = "latest"
	assert.Equal(t, kafkago.LastOffset, kafkaGoReaderConfig(cfg, &kafkago.Dialer{}).StartOffset)
}

func TestFromKafkaGo(t *testing.T) {
	got := fromKafkaGo(kafkago.Message{Topic: "t", Partition: 2, Offset: 9, Value: []byte("v")})
	assert.Equal(t, domain.Offset{Topic: "t", Partition: 2, Position: 9}, got.Offset)
	assert.Equal(t, []byte("v"), got.Value)
}

func TestKafkaGoConnector_UnreachableBroker(t *testing.T) {
	c := &KafkaGoConnector{cfg: testConfig()}

	_, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach kafka brokers")
}

func TestMaxRecords(t *testing.T) {
	assert.Equal(t, 500, maxRecords(0))
	assert.Equal(t, 7, maxRecords(7))
}

func TestConnectorFunc(t *testing.T) {
	want := errors.New("boom")
	var c Connector = ConnectorFunc(func(context.Context) (Source, error) { return nil, want })

	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, want)
}
