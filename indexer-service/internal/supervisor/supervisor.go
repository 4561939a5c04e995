// Package supervisor owns the broker connection and runs the
// pull, transform, apply, commit loop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/cdc-search/indexer-service/internal/applier"
	"github.com/weiawesome/cdc-search/indexer-service/internal/coordinator"
	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
	"github.com/weiawesome/cdc-search/indexer-service/internal/retry"
	"github.com/weiawesome/cdc-search/indexer-service/internal/source"
	pkglog "github.com/weiawesome/cdc-search/pkg/log"
)

// ErrStartup is returned by Run when the initial broker connection could
// not be established.
var ErrStartup = errors.New("indexer startup failed")

// Processor turns a raw record into an index action.
type Processor interface {
	Process(topic string, value []byte) domain.IndexAction
}

// Invalidator is notified after an action was applied.
type Invalidator interface {
	Invalidate(ctx context.Context, action domain.IndexAction) error
}

// Config controls connection retries and logging cadence.
type Config struct {
	StartupAttempts int           `mapstructure:"startup_attempts"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	ReconnectDelay  time.Duration `mapstructure:"reconnect_delay"`
	StatsEvery      int64         `mapstructure:"stats_every"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		StartupAttempts: 10,
		StartupDelay:    6 * time.Second,
		ReconnectDelay:  5 * time.Second,
		StatsEvery:      1000,
	}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithInvalidator registers a post-apply cache invalidator.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Supervisor) { s.invalidator = inv }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// Supervisor drives one consumer through its lifecycle.
type Supervisor struct {
	cfg         Config
	connector   source.Connector
	processor   Processor
	applier     applier.Applier
	invalidator Invalidator
	coord       *coordinator.Coordinator

	state atomic.Int32
	run   RunState

	mu  sync.Mutex
	src source.Source

	logger zerolog.Logger
}

// New creates a Supervisor. Nothing connects until Run.
func New(cfg Config, connector source.Connector, processor Processor, app applier.Applier, opts ...Option) *Supervisor {
	def := DefaultConfig()
	if cfg.StartupAttempts <= 0 {
		cfg.StartupAttempts = def.StartupAttempts
	}
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = 0
	}
	if cfg.ReconnectDelay < 0 {
		cfg.ReconnectDelay = 0
	}

	s := &Supervisor{
		cfg:       cfg,
		connector: connector,
		processor: processor,
		applier:   app,
		coord:     coordinator.New(nil),
		logger:    pkglog.Component("supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setState(StateStarting)
	return s
}

// State returns the current lifecycle phase.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the run counters.
func (s *Supervisor) Stats() Stats {
	return s.run.Snapshot()
}

// Pinned returns the partitions whose commits are withheld after a failure.
func (s *Supervisor) Pinned() []domain.Offset {
	return s.coord.Pinned()
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	stateGauge.Set(float64(st))
}

// Run connects, consumes until ctx is cancelled, then drains.
// It returns nil on a cancellation-driven stop and an ErrStartup-wrapped
// error when the initial connection attempts are exhausted.
func (s *Supervisor) Run(ctx context.Context) error {
	s.setState(StateStarting)

	src, err := s.connect(ctx, retry.Bounded(s.cfg.StartupAttempts, s.cfg.StartupDelay))
	if err != nil {
		s.setState(StateStopped)
		if ctx.Err() != nil {
			s.logger.Info().Msg("stopped before the broker connection was established")
			return nil
		}
		return fmt.Errorf("%w: %w", ErrStartup, err)
	}
	s.attach(src)
	s.setState(StateConnected)
	s.logger.Info().Msg("connected to broker")

	s.setState(StateRunning)
	s.loop(ctx)
	s.drain()
	return nil
}

func (s *Supervisor) connect(ctx context.Context, p retry.Policy) (source.Source, error) {
	var src source.Source
	err := retry.Do(ctx, "broker connect", p, func(attempt int) error {
		s.logger.Debug().Int("attempt", attempt).Msg("connecting to broker")
		var err error
		src, err = s.connector.Connect(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

func (s *Supervisor) attach(src source.Source) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
	s.coord.SetCommitter(src)
}

func (s *Supervisor) detach() {
	s.mu.Lock()
	src := s.src
	s.src = nil
	s.mu.Unlock()

	if src == nil {
		return
	}
	if err := src.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close broker consumer")
	}
}

func (s *Supervisor) current() source.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

func (s *Supervisor) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		src := s.current()
		if src == nil {
			return
		}

		msgs, err := src.Poll(ctx)
		for _, m := range msgs {
			if ctx.Err() != nil {
				return
			}
			s.handle(ctx, m)
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.recover(ctx, err)
		}
	}
}

// handle applies and acknowledges one record. The apply and the commit
// that follows it are not interrupted by cancellation.
func (s *Supervisor) handle(ctx context.Context, m domain.Message) {
	actx := context.WithoutCancel(ctx)
	action := s.processor.Process(m.Offset.Topic, m.Value)

	l := s.logger.With().
		Str(pkglog.FieldTopic, m.Offset.Topic).
		Int32(pkglog.FieldPartition, m.Offset.Partition).
		Int64(pkglog.FieldOffset, m.Offset.Position).
		Logger()

	if action.Kind == domain.ActionSkip {
		s.run.skipped.Add(1)
		eventsCounter.WithLabelValues(action.Kind.String()).Inc()
		if action.Reason == domain.SkipUndecodable {
			l.Warn().Str("reason", action.Reason).Msg("skipping undecodable record")
		} else {
			l.Debug().Str("reason", action.Reason).Msg("skipping record")
		}
		s.commit(actx, l, m.Offset)
		return
	}

	start := time.Now()
	err := s.applier.Apply(actx, action)
	applyDurationHistogram.WithLabelValues(action.Kind.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		s.run.errors.Add(1)
		applyErrorsCounter.WithLabelValues(action.Index).Inc()
		s.coord.Withhold(m.Offset)
		l.Error().Err(err).
			Str(pkglog.FieldAction, action.Kind.String()).
			Str(pkglog.FieldIndex, action.Index).
			Str(pkglog.FieldDocID, action.ID).
			Msg("failed to apply change event, offset withheld")
		return
	}

	switch action.Kind {
	case domain.ActionUpsert:
		s.run.indexed.Add(1)
	case domain.ActionDelete:
		s.run.deleted.Add(1)
	}
	eventsCounter.WithLabelValues(action.Kind.String()).Inc()
	l.Debug().
		Str(pkglog.FieldAction, action.Kind.String()).
		Str(pkglog.FieldIndex, action.Index).
		Str(pkglog.FieldDocID, action.ID).
		Msg("applied change event")

	// The write is already applied, so a failed invalidation never
	// withholds the offset; stale pages expire with the cache TTL.
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(actx, action); err != nil {
			invalidationErrorsCounter.WithLabelValues(action.Index).Inc()
		}
	}

	s.commit(actx, l, m.Offset)
	s.logStats()
}

func (s *Supervisor) commit(ctx context.Context, l zerolog.Logger, off domain.Offset) {
	committed, err := s.coord.Commit(ctx, off)
	if err != nil {
		l.Error().Err(err).Msg("failed to commit offset")
		return
	}
	if committed {
		commitsCounter.Inc()
	}
}

func (s *Supervisor) logStats() {
	if s.cfg.StatsEvery <= 0 {
		return
	}
	st := s.run.Snapshot()
	if st.Applied()%s.cfg.StatsEvery != 0 {
		return
	}
	s.logger.Info().
		Int64("indexed", st.Indexed).
		Int64("deleted", st.Deleted).
		Int64("skipped", st.Skipped).
		Int64("errors", st.Errors).
		Msg("indexing progress")
}

// recover handles a failed poll: pause, then keep polling, or reconnect
// when the connection itself is gone.
func (s *Supervisor) recover(ctx context.Context, err error) {
	lost := errors.Is(err, source.ErrConnectionLost)
	s.logger.Warn().Err(err).
		Bool("connection_lost", lost).
		Dur("retry_in", s.cfg.ReconnectDelay).
		Msg("failed to poll broker")

	if err := retry.Sleep(ctx, s.cfg.ReconnectDelay); err != nil {
		return
	}
	if !lost {
		return
	}

	s.setState(StateStarting)
	s.detach()
	reconnectsCounter.Inc()

	src, err := s.connect(ctx, retry.Unbounded(s.cfg.ReconnectDelay))
	if err != nil {
		// Only cancellation ends an unbounded retry.
		return
	}
	s.attach(src)
	s.setState(StateRunning)
	s.logger.Info().Msg("reconnected to broker")
}

func (s *Supervisor) drain() {
	s.setState(StateDraining)
	s.logger.Info().Msg("draining")

	s.detach()

	st := s.run.Snapshot()
	evt := s.logger.Info().
		Int64("indexed", st.Indexed).
		Int64("deleted", st.Deleted).
		Int64("skipped", st.Skipped).
		Int64("errors", st.Errors)
	if pinned := s.coord.Pinned(); len(pinned) > 0 {
		arr := zerolog.Arr()
		for _, p := range pinned {
			arr.Str(p.String())
		}
		evt = evt.Array("withheld", arr)
	}
	evt.Msg("indexer stopped")

	s.setState(StateStopped)
}
