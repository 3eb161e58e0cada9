// Package outbox drains the outbox table written by the engine inside its
// enroll/cancel transactions and publishes each row to RabbitMQ, the same
// claim-then-publish-then-mark shape as the teacher's
// postgres.Repository.StartOutboxWorker. A row that fails to publish is
// rescheduled with exponential backoff and jitter instead of retried
// immediately, so an outage doesn't turn the worker into a retry storm.
package outbox

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/coursehub/enrollment-service/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	batchSize   = 20
	maxAttempts = 12
	confirmWait = 300 * time.Millisecond
)

type Worker struct {
	pool     *pgxpool.Pool
	exchange string
	log      zerolog.Logger
}

func NewWorker(pool *pgxpool.Pool, exchange string, log zerolog.Logger) *Worker {
	return &Worker{pool: pool, exchange: exchange, log: log.With().Str("component", "outbox_worker").Logger()}
}

// computeNextRetry is exponential backoff with +/-10% jitter (a window 20%
// of the base delay wide), the base floored at 5 seconds and capped at 30
// minutes.
func computeNextRetry(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	sec := math.Pow(2, float64(attempt))
	if sec < 5 {
		sec = 5
	}
	if sec > 1800 {
		sec = 1800
	}
	d := time.Duration(sec) * time.Second
	jitter := time.Duration(rand.Int63n(int64(d/5))) - d/10
	return d + jitter
}

// Run connects to RabbitMQ, declares the exchange, enables publisher
// confirms, and polls the outbox table until ctx is cancelled. It returns
// nil on a clean shutdown; a connection failure is logged and the
// goroutine exits, matching the teacher's fire-and-forget worker rather
// than crashing the process over a messaging outage.
func (w *Worker) Run(ctx context.Context, rabbitURL string) error {
	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(w.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", w.exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable publisher confirms: %w", err)
	}
	confirmCh := ch.NotifyPublish(make(chan amqp.Confirmation, 100))
	returnCh := ch.NotifyReturn(make(chan amqp.Return, 100))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("outbox worker stopped")
			return nil
		case <-ticker.C:
			if err := w.processBatch(ctx, ch, confirmCh, returnCh); err != nil {
				w.log.Warn().Err(err).Msg("outbox batch failed")
			}
		}
	}
}

type outboxRow struct {
	id         int64
	routingKey string
	payload    []byte
	attempts   int
}

func (w *Worker) processBatch(ctx context.Context, ch *amqp.Channel, confirmCh <-chan amqp.Confirmation, returnCh <-chan amqp.Return) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, routing_key, payload, attempts
		FROM outbox
		WHERE status = 'pending' AND next_retry_at <= NOW()
		ORDER BY next_retry_at ASC, occurred_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, batchSize)
	if err != nil {
		return err
	}

	var batch []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.id, &r.routingKey, &r.payload, &r.attempts); err == nil {
			batch = append(batch, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return tx.Commit(ctx)
	}

	// Push next_retry_at into the near future so a second worker instance
	// doesn't pick these rows up again while this one is mid-publish.
	inFlightUntil := time.Now().Add(15 * time.Second)
	for _, r := range batch {
		_, _ = tx.Exec(ctx, `UPDATE outbox SET next_retry_at = $2 WHERE id = $1`, r.id, inFlightUntil)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, r := range batch {
		w.publishOne(ctx, ch, confirmCh, returnCh, r)
	}
	return nil
}

func (w *Worker) publishOne(ctx context.Context, ch *amqp.Channel, confirmCh <-chan amqp.Confirmation, returnCh <-chan amqp.Return, r outboxRow) {
	drainStale(confirmCh, returnCh)

	pub := amqp.Publishing{
		ContentType:  "application/json",
		Body:         r.payload,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		AppId:        "enrollment-service",
	}

	if err := ch.PublishWithContext(ctx, w.exchange, r.routingKey, true, false, pub); err != nil {
		w.fail(ctx, r, fmt.Sprintf("publish error: %v", err))
		return
	}

	deadline := time.After(confirmWait * 2)
	for {
		select {
		case ret := <-returnCh:
			w.fail(ctx, r, fmt.Sprintf("no route: code=%d text=%s rk=%s", ret.ReplyCode, ret.ReplyText, ret.RoutingKey))
			return
		case conf := <-confirmCh:
			if !conf.Ack {
				w.fail(ctx, r, fmt.Sprintf("nack: delivery_tag=%d", conf.DeliveryTag))
				return
			}
			w.markSent(ctx, r)
			return
		case <-deadline:
			w.fail(ctx, r, "confirm/return timeout")
			return
		}
	}
}

func drainStale(confirmCh <-chan amqp.Confirmation, returnCh <-chan amqp.Return) {
	for {
		select {
		case <-returnCh:
		case <-confirmCh:
		default:
			return
		}
	}
}

func (w *Worker) markSent(ctx context.Context, r outboxRow) {
	_, _ = w.pool.Exec(ctx, `UPDATE outbox SET status = 'sent', last_error = NULL WHERE id = $1`, r.id)
	metrics.OutboxPublishedTotal.Inc()
	w.log.Info().Int64("outbox_id", r.id).Str("routing_key", r.routingKey).Msg("published")
}

func (w *Worker) fail(ctx context.Context, r outboxRow, reason string) {
	nextAttempt := r.attempts + 1
	if nextAttempt >= maxAttempts {
		_, _ = w.pool.Exec(ctx, `
			UPDATE outbox SET status = 'dead', attempts = $2, last_error = $3 WHERE id = $1
		`, r.id, nextAttempt, reason)
		w.log.Error().Int64("outbox_id", r.id).Str("routing_key", r.routingKey).Int("attempts", nextAttempt).Msg("outbox row moved to dead letter")
		return
	}

	delay := computeNextRetry(nextAttempt)
	_, _ = w.pool.Exec(ctx, `
		UPDATE outbox SET attempts = $2, next_retry_at = NOW() + $3::interval, last_error = $4 WHERE id = $1
	`, r.id, nextAttempt, fmt.Sprintf("%f seconds", delay.Seconds()), reason)
	w.log.Warn().Int64("outbox_id", r.id).Str("routing_key", r.routingKey).Int("attempts", nextAttempt).Dur("retry_in", delay).Msg("outbox publish failed, scheduled retry")
}
