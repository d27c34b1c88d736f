package controller

import (
	"net/http"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/service"

	"github.com/gin-gonic/gin"
)

type TrackingController struct {
	Service *service.TrackingService
	Log     logger.Logger
}

func NewTrackingController(s *service.TrackingService, log logger.Logger) *TrackingController {
	return &TrackingController{Service: s, Log: log}
}

// POST /tracking
func (ctl *TrackingController) Record(c *gin.Context) {
	var req dto.TrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	event, err := ctl.Service.Record(c.Request.Context(), req)
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"insertedId": event.ID.Hex(), "event": event})
}

// GET /tracking/:trackingId
func (ctl *TrackingController) History(c *gin.Context) {
	events, err := ctl.Service.History(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
