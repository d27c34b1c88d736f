// setup.go
package rabbit

import (
	"errors"
	"fmt"

	"parcel-delivery-service/internal/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	TrackingExchange = "parcel_tracking"
	TrackingQueue    = "parcel_tracking_events"
)

// DeclareExchanges declares the fanout exchanges this service publishes to
// and consumes from.
func DeclareExchanges(ch *amqp091.Channel) error {
	for _, name := range []string{EventsExchange, TrackingExchange} {
		if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

// SetupConsumers binds the tracking queue to its exchange and starts
// delivering into consumer. Deliveries are acked after processing;
// poison messages are dropped and transient failures requeued once.
func SetupConsumers(ch *amqp091.Channel, consumer *TrackingConsumer, log logger.Logger) error {
	q, err := ch.QueueDeclare(
		TrackingQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// fanout ignores the routing key
	if err := ch.QueueBind(q.Name, "", TrackingExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue: %w", err)
	}

	go func() {
		for m := range msgs {
			settle(m, consumer.Handle(m.Body), log)
		}
		log.Info("tracking consumer stopped")
	}()

	log.Info("subscribed to exchange", "exchange", TrackingExchange, "queue", q.Name)
	return nil
}

// Acknowledger is implemented by amqp091.Delivery.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(m amqp091.Delivery, handleErr error, log logger.Logger) {
	if err := settleWith(m, m.Redelivered, handleErr); err != nil {
		log.Warn("delivery not settled", "error", err)
	}
}

func settleWith(d Acknowledger, redelivered bool, handleErr error) error {
	switch {
	case handleErr == nil:
		return d.Ack(false)
	case errors.Is(handleErr, ErrPoisonMessage), redelivered:
		return d.Nack(false, false)
	default:
		return d.Nack(false, true)
	}
}
