package tokensale

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/plugin"
	"github.com/xraph/tokensale/store"
)

// Engine is the main token sale engine. All operations on tokens,
// compliance gates and sales go through a single Engine instance.
//
// A single engine-wide lock serializes every state mutation, so each
// operation observes a consistent snapshot and purchases cannot
// interleave with allowance or balance changes.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Global lock over all ledger, gate and sale state
	mu sync.RWMutex

	// Background workers
	journalBuffer chan *event.Record
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	// Configuration
	journalBatchSize     int
	journalFlushInterval time.Duration
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:                s,
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		journalBuffer:        make(chan *event.Record, 10000),
		stopChan:             make(chan struct{}),
		journalBatchSize:     100,
		journalFlushInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithJournalConfig configures journal flush parameters.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(e *Engine) {
		e.journalBatchSize = batchSize
		e.journalFlushInterval = flushInterval
	}
}

// Start begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start journal flush worker
	e.wg.Add(1)
	go e.journalFlushWorker(ctx)

	e.logger.Info("tokensale engine started",
		"batch_size", e.journalBatchSize,
		"flush_interval", e.journalFlushInterval,
	)

	return nil
}

// Stop shuts down the Engine, flushing any buffered journal records.
// Calling Stop more than once is a no-op.
func (e *Engine) Stop() error {
	var err error
	e.stopOnce.Do(func() {
		close(e.stopChan)
		e.wg.Wait()

		ctx := context.Background()
		e.plugins.EmitShutdown(ctx)

		err = e.store.Close()
	})
	return err
}

// Plugins returns the engine's plugin registry.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

// journal enqueues a record for asynchronous persistence (non-blocking).
// A full buffer drops the record with a warning; the journal is an
// audit convenience, not the system of record.
func (e *Engine) journal(r *event.Record) {
	if r.ID.IsNil() {
		r.ID = id.NewEventID()
	}
	if r.OccurredAt.IsZero() {
		r.OccurredAt = time.Now()
	}

	select {
	case e.journalBuffer <- r:
	default:
		e.logger.Warn("journal buffer full, dropping record",
			"type", r.Type,
			"sale_id", r.SaleID,
		)
	}
}

// journalFlushWorker flushes journal records to the store.
func (e *Engine) journalFlushWorker(ctx context.Context) {
	defer e.wg.Done()

	batch := make([]*event.Record, 0, e.journalBatchSize)
	ticker := time.NewTicker(e.journalFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			// Drain the buffer, then final flush
			for {
				select {
				case r := <-e.journalBuffer:
					batch = append(batch, r)
					continue
				default:
				}
				break
			}
			if len(batch) > 0 {
				e.flushJournalBatch(ctx, batch)
			}
			return

		case r := <-e.journalBuffer:
			batch = append(batch, r)
			if len(batch) >= e.journalBatchSize {
				e.flushJournalBatch(ctx, batch)
				batch = make([]*event.Record, 0, e.journalBatchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				e.flushJournalBatch(ctx, batch)
				batch = make([]*event.Record, 0, e.journalBatchSize)
			}
		}
	}
}

func (e *Engine) flushJournalBatch(ctx context.Context, batch []*event.Record) {
	start := time.Now()

	if err := e.store.AppendEvents(ctx, batch); err != nil {
		e.logger.Error("failed to flush journal batch",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	elapsed := time.Since(start)
	e.plugins.EmitJournalFlushed(ctx, len(batch), elapsed)

	e.logger.Debug("flushed journal batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// Events queries the persisted journal.
func (e *Engine) Events(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	return e.store.ListEvents(ctx, opts)
}

// PurgeEvents removes journal records older than the given time and
// returns the number removed.
func (e *Engine) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	return e.store.PurgeEvents(ctx, before)
}
