package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/service"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderStub struct {
	got []dto.TrackingRequest
	err error
}

func (r *recorderStub) Record(_ context.Context, req dto.TrackingRequest) (*model.TrackingEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.got = append(r.got, req)
	return &model.TrackingEvent{TrackingID: req.TrackingID, Status: req.Status}, nil
}

func TestTrackingConsumer_Handle(t *testing.T) {
	t.Run("Should record the wrapped tracking event", func(t *testing.T) {
		rec := &recorderStub{}
		c := NewTrackingConsumer(rec, logger.Discard())

		err := c.Handle([]byte(`{"correlation_id":"c1","exchange":"parcel_tracking","message":{"trackingId":"PCL-1","status":"picked_up","location":"Dhaka"}}`))
		require.NoError(t, err)
		require.Len(t, rec.got, 1)
		assert.Equal(t, "PCL-1", rec.got[0].TrackingID)
		assert.Equal(t, "picked_up", rec.got[0].Status)
		assert.Equal(t, "Dhaka", rec.got[0].Location)
	})

	t.Run("Should flag malformed JSON as poison", func(t *testing.T) {
		c := NewTrackingConsumer(&recorderStub{}, logger.Discard())
		err := c.Handle([]byte(`{not json`))
		assert.ErrorIs(t, err, ErrPoisonMessage)
	})

	t.Run("Should flag invalid events as poison", func(t *testing.T) {
		rec := &recorderStub{err: fmt.Errorf("%w: trackingId and status are required", service.ErrBadRequest)}
		c := NewTrackingConsumer(rec, logger.Discard())
		err := c.Handle([]byte(`{"message":{}}`))
		assert.ErrorIs(t, err, ErrPoisonMessage)
	})

	t.Run("Should keep store failures retryable", func(t *testing.T) {
		rec := &recorderStub{err: service.ErrStoreUnavailable}
		c := NewTrackingConsumer(rec, logger.Discard())
		err := c.Handle([]byte(`{"message":{"trackingId":"PCL-1","status":"x"}}`))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPoisonMessage)
	})
}

type ackSpy struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackSpy) Ack(bool) error { a.acked = true; return nil }
func (a *ackSpy) Nack(_, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func TestSettleWith(t *testing.T) {
	cases := []struct {
		name        string
		redelivered bool
		err         error
		acked       bool
		requeue     bool
	}{
		{"success acks", false, nil, true, false},
		{"poison is dropped", false, ErrPoisonMessage, false, false},
		{"transient is requeued", false, errors.New("timeout"), false, true},
		{"transient redelivery is dropped", true, errors.New("timeout"), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spy := &ackSpy{}
			require.NoError(t, settleWith(spy, tc.redelivered, tc.err))
			assert.Equal(t, tc.acked, spy.acked)
			assert.Equal(t, !tc.acked, spy.nacked)
			assert.Equal(t, tc.requeue, spy.requeue)
		})
	}
}

type channelSpy struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	err      error
}

func (c *channelSpy) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func TestPublisher_Publish(t *testing.T) {
	t.Run("Should wrap the payload in an envelope", func(t *testing.T) {
		ch := &channelSpy{}
		p := NewPublisher(ch, "")

		require.NoError(t, p.Publish(context.Background(), service.EventParcelAssigned, map[string]any{"parcelId": "p1"}))
		assert.Equal(t, EventsExchange, ch.exchange)
		assert.Equal(t, "parcel.assigned", ch.key)
		assert.Equal(t, "application/json", ch.msg.ContentType)
		assert.NotEmpty(t, ch.msg.CorrelationId)

		var env struct {
			CorrelationID string         `json:"correlation_id"`
			RoutingKey    string         `json:"routing_key"`
			Message       map[string]any `json:"message"`
		}
		require.NoError(t, json.Unmarshal(ch.msg.Body, &env))
		assert.Equal(t, ch.msg.CorrelationId, env.CorrelationID)
		assert.Equal(t, "parcel.assigned", env.RoutingKey)
		assert.Equal(t, "p1", env.Message["parcelId"])
	})

	t.Run("Should wrap channel errors", func(t *testing.T) {
		ch := &channelSpy{err: amqp091.ErrClosed}
		err := NewPublisher(ch, "x").Publish(context.Background(), "k", nil)
		assert.ErrorIs(t, err, amqp091.ErrClosed)
	})
}
