// Package relay ships audit outbox rows to the reporting topic. The engine's
// synchronous path ends at the outbox insert; the relay runs beside the server
// and only the reporting plane consumes the topic.
package relay

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agripass/internal/platform/metrics"
)

// Publisher abstracts the topic producer so tests can run without brokers.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Relay polls the outbox and publishes unshipped rows in insertion order.
type Relay struct {
	db        *sql.DB
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	interval  time.Duration
	batchSize int
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize overrides how many rows one poll ships.
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

// WithMetrics wires relay counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func New(db *sql.DB, publisher Publisher, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		publisher: publisher,
		logger:    logger,
		interval:  2 * time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; rows are only marked shipped after the broker
// acknowledged them.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.shipBatch(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id      uuid.UUID
	entryID uuid.UUID
	payload []byte
}

func (r *Relay) shipBatch(ctx context.Context) error {
	rows, err := r.fetchUnshipped(ctx)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if err := r.publisher.Publish(ctx, row.entryID.String(), row.payload); err != nil {
			if r.metrics != nil {
				r.metrics.OutboxRelayFailures.Inc()
			}
			// Stop the batch; order within the outbox must be preserved.
			return err
		}
		if err := r.markShipped(ctx, row.id); err != nil {
			return err
		}
		if r.metrics != nil {
			r.metrics.OutboxRelayPublished.Inc()
		}
	}
	return nil
}

func (r *Relay) fetchUnshipped(ctx context.Context) ([]outboxRow, error) {
	const query = `
		SELECT id, entry_id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	res, err := r.db.QueryContext(ctx, query, r.batchSize)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var out []outboxRow
	for res.Next() {
		var row outboxRow
		if err := res.Scan(&row.id, &row.entryID, &row.payload); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, res.Err()
}

func (r *Relay) markShipped(ctx context.Context, rowID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = $1 WHERE id = $2`, time.Now(), rowID)
	return err
}
