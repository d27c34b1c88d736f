package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const EventsExchange = "parcel_events"

// Publishing is the slice of *amqp091.Channel the publisher needs.
type Publishing interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Envelope wraps every message this service puts on the bus.
type Envelope struct {
	CorrelationID string    `json:"correlation_id"`
	Exchange      string    `json:"exchange"`
	RoutingKey    string    `json:"routing_key"`
	OccurredAt    time.Time `json:"occurred_at"`
	Message       any       `json:"message"`
}

// Publisher emits domain events on the fanout exchange. Consumers filter on
// the envelope's routing_key.
type Publisher struct {
	mu       sync.Mutex
	ch       Publishing
	exchange string
}

func NewPublisher(ch Publishing, exchange string) *Publisher {
	if exchange == "" {
		exchange = EventsExchange
	}
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	env := Envelope{
		CorrelationID: uuid.NewString(),
		Exchange:      p.exchange,
		RoutingKey:    routingKey,
		OccurredAt:    time.Now().UTC(),
		Message:       payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: env.CorrelationID,
		Timestamp:     env.OccurredAt,
		Type:          routingKey,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", routingKey, err)
	}
	return nil
}
