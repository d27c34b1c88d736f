package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/service"
)

// TrackingRecorder stores tracking events.
type TrackingRecorder interface {
	Record(ctx context.Context, req dto.TrackingRequest) (*model.TrackingEvent, error)
}

type TrackingConsumer struct {
	recorder TrackingRecorder
	log      logger.Logger
	timeout  time.Duration
}

func NewTrackingConsumer(r TrackingRecorder, log logger.Logger) *TrackingConsumer {
	return &TrackingConsumer{recorder: r, log: log, timeout: 5 * time.Second}
}

// TrackingMessage is the envelope carriers publish status updates in.
type TrackingMessage struct {
	CorrelationID string              `json:"correlation_id"`
	Exchange      string              `json:"exchange"`
	RoutingKey    string              `json:"routing_key"`
	Message       dto.TrackingRequest `json:"message"`
}

// ErrPoisonMessage marks deliveries that will never succeed on redelivery.
var ErrPoisonMessage = errors.New("unprocessable message")

func (c *TrackingConsumer) Handle(msg []byte) error {
	var event TrackingMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		c.log.Warn("tracking message not parsed", "error", err)
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	e, err := c.recorder.Record(ctx, event.Message)
	if err != nil {
		c.log.Error("tracking event not recorded", "correlation_id", event.CorrelationID,
			"tracking_id", event.Message.TrackingID, "error", err)
		if errors.Is(err, service.ErrBadRequest) {
			return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
		}
		return err
	}

	c.log.Debug("tracking event recorded", "correlation_id", event.CorrelationID,
		"tracking_id", e.TrackingID, "status", e.Status)
	return nil
}
