package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"party-service/internal/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const ChangeEventsTopic = "party-events"

// Publisher pushes change events onto the feed the dispatch side consumes.
type Publisher interface {
	Publish(ctx context.Context, event *domain.ChangeEvent) error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) Publisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        ChangeEventsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish keys messages by party id so all events for one party stay ordered
// on one partition.
func (p *kafkaPublisher) Publish(ctx context.Context, event *domain.ChangeEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(partitionKey(event)),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("[ChangeEvent] Published: %s id=%s", event.Type, event.ID)
	return nil
}

func partitionKey(e *domain.ChangeEvent) string {
	switch {
	case e.PartyAfter != nil:
		return e.PartyAfter.ID
	case e.PartyBefore != nil:
		return e.PartyBefore.ID
	case e.RequestAfter != nil:
		return e.RequestAfter.PartyID
	case e.RequestBefore != nil:
		return e.RequestBefore.PartyID
	case e.Chat != nil:
		return e.Chat.PartyID
	}
	return e.ID
}
