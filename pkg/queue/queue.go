package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueObjectCreated is the Redis list key for object-store write events.
	QueueObjectCreated = "events:object-created"
	// QueueJobResults is the Redis list key for transcode completion events.
	QueueJobResults = "events:job-results"
	// QueueDLQ holds events that exhausted retries or failed fatally.
	QueueDLQ = "events:dlq"
	// MaxAttempts is the number of deliveries before an event moves to DLQ.
	MaxAttempts = 3
	// RetryBackoff is the delay before a failed event is redelivered.
	RetryBackoff = 10 * time.Second
)

// EventType identifies the event kind.
type EventType string

const (
	EventTypeObjectCreated EventType = "object_created"
	EventTypeJobResult     EventType = "job_result"
)

// ObjectCreatedPayload carries one object-store write notification.
type ObjectCreatedPayload struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// JobResultPayload carries one transcode job completion notification.
type JobResultPayload struct {
	Status       string `json:"status"`
	VideoID      string `json:"video_id"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Event is the queued envelope for one external trigger delivery.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue delivers lifecycle trigger events through Redis lists. It is the
// redelivery layer: handlers never retry internally, failed deliveries are
// re-enqueued here and dead events land in the DLQ for an operator.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a Redis-backed event queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueObjectCreated enqueues an object-store write event.
func (q *Queue) EnqueueObjectCreated(ctx context.Context, payload ObjectCreatedPayload) error {
	return q.enqueue(ctx, QueueObjectCreated, EventTypeObjectCreated, payload)
}

// EnqueueJobResult enqueues a transcode completion event.
func (q *Queue) EnqueueJobResult(ctx context.Context, payload JobResultPayload) error {
	return q.enqueue(ctx, QueueJobResults, EventTypeJobResult, payload)
}

func (q *Queue) enqueue(ctx context.Context, key string, typ EventType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	ev := Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued event", zap.String("event_id", ev.ID), zap.String("type", string(typ)))
	return nil
}

// Dequeue blocks until an event is available on either queue or the block
// timeout elapses. A nil event with nil error means nothing was available.
func (q *Queue) Dequeue(ctx context.Context) (*Event, error) {
	result, err := q.client.BLPop(ctx, 5*time.Second, QueueObjectCreated, QueueJobResults).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var ev Event
	if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
		q.logger.Warn("invalid event payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &ev, nil
}

// Retry re-enqueues an event with incremented attempt on its home queue.
// After MaxAttempts the event moves to the DLQ instead.
func (q *Queue) Retry(ctx context.Context, ev *Event) error {
	ev.Attempt++
	if ev.Attempt >= MaxAttempts {
		return q.MoveToDLQ(ctx, ev, "retries exhausted")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.homeQueue(ev), raw).Err(); err != nil {
		return err
	}
	q.logger.Info("event retried", zap.String("event_id", ev.ID), zap.Int("attempt", ev.Attempt))
	return nil
}

// MoveToDLQ parks an event in the dead-letter queue. Used for exhausted
// retries and for fatal events that must never be retried.
func (q *Queue) MoveToDLQ(ctx context.Context, ev *Event, reason string) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
		q.logger.Error("dlq push failed", zap.Error(err), zap.String("event_id", ev.ID))
		return err
	}
	q.logger.Warn("event moved to DLQ",
		zap.String("event_id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.String("reason", reason),
		zap.Int("attempt", ev.Attempt),
	)
	return nil
}

func (q *Queue) homeQueue(ev *Event) string {
	if ev.Type == EventTypeJobResult {
		return QueueJobResults
	}
	return QueueObjectCreated
}
