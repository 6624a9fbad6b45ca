// Package worker runs the event loop that delivers queued trigger events to
// the lifecycle handlers, with retry for transient failures and a DLQ for
// fatal ones.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skylight-video/backend/internal/transcode"
	"github.com/skylight-video/backend/internal/videostore"
	"github.com/skylight-video/backend/pkg/queue"
)

// EventProcessor consumes lifecycle trigger events and applies them through
// the dispatcher and completion handler.
type EventProcessor struct {
	events     *queue.Queue
	dispatcher *transcode.Dispatcher
	completion *transcode.CompletionHandler
	logger     *zap.Logger
}

// NewEventProcessor creates the event processor.
func NewEventProcessor(events *queue.Queue, dispatcher *transcode.Dispatcher, completion *transcode.CompletionHandler, logger *zap.Logger) *EventProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventProcessor{
		events:     events,
		dispatcher: dispatcher,
		completion: completion,
		logger:     logger,
	}
}

// Process applies one event to its handler.
func (p *EventProcessor) Process(ctx context.Context, ev *queue.Event) error {
	switch ev.Type {
	case queue.EventTypeObjectCreated:
		var payload queue.ObjectCreatedPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal object-created payload: %w", errMalformedEvent)
		}
		return p.dispatcher.HandleObjectCreated(ctx, transcode.ObjectCreatedEvent{
			Bucket: payload.Bucket,
			Key:    payload.Key,
		})

	case queue.EventTypeJobResult:
		var payload queue.JobResultPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal job-result payload: %w", errMalformedEvent)
		}
		return p.completion.HandleJobResult(ctx, transcode.JobResultEvent{
			Status:       payload.Status,
			VideoID:      payload.VideoID,
			ErrorMessage: payload.ErrorMessage,
		})

	default:
		return fmt.Errorf("event type %q: %w", ev.Type, errMalformedEvent)
	}
}

var errMalformedEvent = errors.New("malformed event")

// IsFatal reports whether a processing error must never be retried: a
// conditional write conflict (missing record or stale transition) is a
// data-integrity signal for an operator, and a malformed event will not get
// better on redelivery.
func IsFatal(err error) bool {
	return errors.Is(err, videostore.ErrNotFound) ||
		errors.Is(err, videostore.ErrStaleTransition) ||
		errors.Is(err, transcode.ErrMalformedKey) ||
		errors.Is(err, errMalformedEvent)
}

// Run consumes events until ctx is cancelled. Transient failures are
// re-enqueued with backoff up to the queue's attempt limit; fatal failures
// go straight to the DLQ.
func (p *EventProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event worker stopping")
			return
		default:
		}

		ev, err := p.events.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("event worker stopping")
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if ev == nil {
			continue
		}

		if err := p.Process(ctx, ev); err != nil {
			if IsFatal(err) {
				p.logger.Error("event failed fatally",
					zap.String("event_id", ev.ID),
					zap.String("type", string(ev.Type)),
					zap.Error(err),
				)
				_ = p.events.MoveToDLQ(ctx, ev, err.Error())
				continue
			}
			p.logger.Warn("event failed, scheduling retry",
				zap.String("event_id", ev.ID),
				zap.Int("attempt", ev.Attempt),
				zap.Error(err),
			)
			time.Sleep(queue.RetryBackoff)
			if err := p.events.Retry(ctx, ev); err != nil {
				p.logger.Error("retry enqueue failed", zap.Error(err), zap.String("event_id", ev.ID))
			}
		}
	}
}
