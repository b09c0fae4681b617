package events

import (
	"context"
	"encoding/json"
	"errors"

	"party-service/internal/domain"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler is one reactive subscriber to the change feed.
type Handler interface {
	HandleEvent(ctx context.Context, event *domain.ChangeEvent)
}

// reader is the slice of kafka.Reader the consume loop uses. Fetch and commit
// are split so the offset is only committed after the handlers ran; ReadMessage
// would auto-commit at read time and a crash mid-handling would skip the event
// on restart.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer reads the change feed and feeds every handler in turn.
// Consumer groups give at-least-once delivery; handlers are expected to be
// idempotent under redelivery and must never panic their way out of the loop,
// so each invocation is recover-wrapped. A handler failure is logged and the
// message is still committed: retrying a poison event forever would stall the
// whole partition.
func StartConsumer(ctx context.Context, brokers []string, groupID string, logger *zap.Logger, handlers ...Handler) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   ChangeEventsTopic,
		GroupID: groupID,
	})

	logger.Info("change-event consumer started",
		zap.String("topic", ChangeEventsTopic),
		zap.String("group", groupID))

	consumeLoop(ctx, r, logger, handlers...)
}

func consumeLoop(ctx context.Context, r reader, logger *zap.Logger, handlers ...Handler) {
	defer r.Close()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("change-event consumer stopped")
				return
			}
			logger.Error("kafka fetch error", zap.Error(err))
			continue
		}

		var event domain.ChangeEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			logger.Error("failed to unmarshal change event",
				zap.Error(err), zap.ByteString("key", m.Key))
		} else {
			for _, h := range handlers {
				invoke(ctx, h, &event, logger)
			}
		}

		// Commit only after the handlers ran; uncommitted events are
		// redelivered on restart. Unparseable events still commit so one
		// poison message cannot stall the partition.
		if err := r.CommitMessages(ctx, m); err != nil {
			logger.Error("kafka commit error",
				zap.Error(err), zap.Int64("offset", m.Offset))
		}
	}
}

func invoke(ctx context.Context, h Handler, event *domain.ChangeEvent, logger *zap.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("handler panic recovered",
				zap.Any("panic", rec),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
	}()
	h.HandleEvent(ctx, event)
}
