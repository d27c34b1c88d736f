package controller

import (
	"net/http"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/middleware"
	"parcel-delivery-service/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	Service *service.PaymentService
	Log     logger.Logger
}

func NewPaymentController(s *service.PaymentService, log logger.Logger) *PaymentController {
	return &PaymentController{Service: s, Log: log}
}

// POST /create-payment-intent
func (ctl *PaymentController) CreateIntent(c *gin.Context) {
	var req dto.PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	res, err := ctl.Service.CreateIntent(c.Request.Context(), req)
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /save-payment
func (ctl *PaymentController) Save(c *gin.Context) {
	var req dto.SavePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	res, err := ctl.Service.Save(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyRecorded {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// GET /all-payments - admin
func (ctl *PaymentController) ListAll(c *gin.Context) {
	payments, err := ctl.Service.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GET /my-payments/:email - owner only
func (ctl *PaymentController) ListMine(c *gin.Context) {
	payments, err := ctl.Service.ListByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
