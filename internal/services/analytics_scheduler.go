package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/msshahs/prepseed-backend-sub001/internal/events"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// SchedulerMode selects how queued submissions reach the aggregate.
type SchedulerMode int

const (
	// ModeImmediate drains a key right after every enqueue.
	ModeImmediate SchedulerMode = iota
	// ModePeriodic drains keys from Run, at most once per FlushInterval each.
	ModePeriodic
)

func (m SchedulerMode) String() string {
	if m == ModePeriodic {
		return "periodic"
	}
	return "immediate"
}

// QueueItem is one graded submission waiting to be applied to an aggregate.
type QueueItem struct {
	Key          models.AggregateKey
	Meta         *models.SubmissionMeta
	SubmissionID string
	UserID       string
}

// AggregateStore is the fetch/persist capability a drain needs.
type AggregateStore interface {
	Get(ctx context.Context, key models.AggregateKey) (*models.Aggregate, error)
	Put(ctx context.Context, aggregate *models.Aggregate) error
}

type SchedulerConfig struct {
	Name          string
	Mode          SchedulerMode
	FlushInterval time.Duration
	ProbeInterval time.Duration
	Workers       int
}

// DrainResult summarizes one completed drain.
type DrainResult struct {
	Key     models.AggregateKey
	Applied int
	Skipped int
}

type keyState struct {
	// lock is held for the whole drain; queue is guarded by the scheduler mutex.
	lock    sync.Mutex
	queue   []QueueItem
	limiter *rate.Limiter
}

// AnalyticsScheduler serializes aggregate updates per key. Each key has a
// FIFO queue and a drain lock; only the lock holder mutates the aggregate.
type AnalyticsScheduler struct {
	config     SchedulerConfig
	store      AggregateStore
	aggregator *AnalyticsAggregator
	publisher  events.EventPublisher
	logger     *slog.Logger

	mu     sync.Mutex
	keys   map[models.AggregateKey]*keyState
	closed bool

	stop     chan struct{}
	stopOnce sync.Once
	drains   sync.WaitGroup
}

func NewAnalyticsScheduler(config SchedulerConfig, store AggregateStore, aggregator *AnalyticsAggregator, publisher events.EventPublisher, logger *slog.Logger) *AnalyticsScheduler {
	if config.ProbeInterval <= 0 {
		config.ProbeInterval = 5 * time.Second
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Name == "" {
		config.Name = config.Mode.String()
	}

	return &AnalyticsScheduler{
		config:     config,
		store:      store,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger.With("scheduler", config.Name, "mode", config.Mode.String()),
		keys:       make(map[models.AggregateKey]*keyState),
		stop:       make(chan struct{}),
	}
}

// state returns the key's state, creating it. Callers hold s.mu.
func (s *AnalyticsScheduler) state(key models.AggregateKey) *keyState {
	st, ok := s.keys[key]
	if !ok {
		st = &keyState{}
		if s.config.Mode == ModePeriodic && s.config.FlushInterval > 0 {
			st.limiter = rate.NewLimiter(rate.Every(s.config.FlushInterval), 1)
		}
		s.keys[key] = st
	}
	return st
}

func (s *AnalyticsScheduler) lookup(key models.AggregateKey) *keyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(key)
}

// Enqueue appends an item to its key's queue without waiting for a drain.
// Items without grading meta are rejected.
func (s *AnalyticsScheduler) Enqueue(item QueueItem) error {
	if item.Meta == nil {
		return NewClientDataError("enqueue", ValidationErrors{
			*NewValidationError("meta", "is required", item.SubmissionID),
		})
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	st := s.state(item.Key)
	st.queue = append(st.queue, item)
	immediate := s.config.Mode == ModeImmediate
	if immediate {
		s.drains.Add(1)
	}
	s.mu.Unlock()

	if immediate {
		go func() {
			defer s.drains.Done()
			if _, err := s.Drain(context.Background(), item.Key); err != nil {
				s.logger.Error("Triggered drain failed", "key", item.Key.String(), "error", err)
			}
		}()
	}
	return nil
}

// Drain waits for the key's lock and applies everything queued for it.
func (s *AnalyticsScheduler) Drain(ctx context.Context, key models.AggregateKey) (*DrainResult, error) {
	st := s.lookup(key)
	st.lock.Lock()
	defer st.lock.Unlock()
	return s.drainLocked(context.WithoutCancel(ctx), key, st)
}

// TryDrain drains the key unless another drain holds its lock. The boolean
// reports whether the lock was acquired.
func (s *AnalyticsScheduler) TryDrain(ctx context.Context, key models.AggregateKey) (*DrainResult, bool, error) {
	st := s.lookup(key)
	if !st.lock.TryLock() {
		return nil, false, nil
	}
	defer st.lock.Unlock()
	result, err := s.drainLocked(context.WithoutCancel(ctx), key, st)
	return result, true, err
}

func (s *AnalyticsScheduler) drainLocked(ctx context.Context, key models.AggregateKey, st *keyState) (*DrainResult, error) {
	taken := s.take(st)
	if len(taken) == 0 {
		return &DrainResult{Key: key}, nil
	}

	aggregate, err := s.store.Get(ctx, key)
	if repositories.IsNotFoundError(err) {
		aggregate, err = models.NewAggregate(key, s.aggregator.Buckets()), nil
	}
	if err != nil {
		return nil, s.fail(ctx, key, st, taken, "fetch", err)
	}

	// Items enqueued while applying are picked up before the single persist.
	result := &DrainResult{Key: key}
	for batch := taken; len(batch) > 0; {
		for _, item := range batch {
			if _, applied := s.aggregator.Apply(aggregate, item.Meta, item.SubmissionID, item.UserID); applied {
				result.Applied++
			} else {
				result.Skipped++
			}
		}
		batch = s.take(st)
		taken = append(taken, batch...)
	}

	if err := s.store.Put(ctx, aggregate); err != nil {
		return nil, s.fail(ctx, key, st, taken, "persist", err)
	}

	s.logger.Debug("Aggregate drained", "key", key.String(), "applied", result.Applied, "skipped", result.Skipped)
	s.publish(ctx, events.NewAggregateUpdatedEvent(events.AggregateUpdatedEvent{
		Kind:          string(key.Kind),
		EntityID:      key.ID,
		Applied:       result.Applied,
		Skipped:       result.Skipped,
		TotalAttempts: aggregate.TotalAttempts,
	}))
	return result, nil
}

// take empties the key's queue and returns what it held.
func (s *AnalyticsScheduler) take(st *keyState) []QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := st.queue
	st.queue = nil
	return items
}

// fail puts the taken items back at the head of the queue so the next drain
// starts from the same queue state.
func (s *AnalyticsScheduler) fail(ctx context.Context, key models.AggregateKey, st *keyState, taken []QueueItem, op string, err error) error {
	s.mu.Lock()
	st.queue = append(taken, st.queue...)
	pending := len(st.queue)
	s.mu.Unlock()

	s.logger.Warn("Aggregate drain failed", "key", key.String(), "op", op, "pending", pending, "error", err)
	s.publish(ctx, events.NewAggregateFailedEvent(events.AggregateFailedEvent{
		Kind:     string(key.Kind),
		EntityID: key.ID,
		Pending:  pending,
		Error:    err.Error(),
	}))
	return &AggregateApplyError{Key: key, Op: op, Err: err}
}

func (s *AnalyticsScheduler) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish analytics event", "type", string(event.Type), "error", err)
	}
}

// Backlog is the number of items waiting for the key.
func (s *AnalyticsScheduler) Backlog(key models.AggregateKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.keys[key]; ok {
		return len(st.queue)
	}
	return 0
}

// BusiestKey returns the key with the longest queue. ok is false when
// nothing is queued.
func (s *AnalyticsScheduler) BusiestKey() (key models.AggregateKey, backlog int, ok bool) {
	keys := s.backlogged()
	if len(keys) == 0 {
		return models.AggregateKey{}, 0, false
	}
	return keys[0], s.Backlog(keys[0]), true
}

// backlogged lists keys with queued items, longest queue first.
func (s *AnalyticsScheduler) backlogged() []models.AggregateKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]models.AggregateKey, 0, len(s.keys))
	sizes := make(map[models.AggregateKey]int, len(s.keys))
	for key, st := range s.keys {
		if len(st.queue) > 0 {
			keys = append(keys, key)
			sizes[key] = len(st.queue)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if sizes[keys[i]] != sizes[keys[j]] {
			return sizes[keys[i]] > sizes[keys[j]]
		}
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Flush drains every key with a backlog, ignoring rate limits.
func (s *AnalyticsScheduler) Flush(ctx context.Context) error {
	var errs []error
	for _, key := range s.backlogged() {
		if _, err := s.Drain(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run probes the queues every ProbeInterval until ctx is done or the
// scheduler is closed.
func (s *AnalyticsScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.ProbeInterval)
	defer ticker.Stop()

	s.logger.Info("Analytics scheduler started", "probe_interval", s.config.ProbeInterval, "flush_interval", s.config.FlushInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// probe drains backlogged keys, busiest first, skipping keys that are locked
// or were drained within their flush interval.
func (s *AnalyticsScheduler) probe(ctx context.Context) {
	g := new(errgroup.Group)
	g.SetLimit(s.config.Workers)

	for _, key := range s.backlogged() {
		key := key
		st := s.lookup(key)
		if st.limiter != nil && !st.limiter.Allow() {
			continue
		}
		g.Go(func() error {
			if _, _, err := s.TryDrain(ctx, key); err != nil {
				s.logger.Error("Scheduled drain failed", "key", key.String(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Wait blocks until drains triggered by Enqueue have finished.
func (s *AnalyticsScheduler) Wait() {
	s.drains.Wait()
}

// Close rejects further enqueues, stops Run and flushes what is left.
func (s *AnalyticsScheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })

	s.Wait()
	return s.Flush(ctx)
}
