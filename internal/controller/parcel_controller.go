package controller

import (
	"net/http"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/middleware"
	"parcel-delivery-service/internal/service"

	"github.com/gin-gonic/gin"
)

type ParcelController struct {
	Service     *service.ParcelService
	Coordinator *service.Coordinator
	Log         logger.Logger
}

func NewParcelController(s *service.ParcelService, coord *service.Coordinator, log logger.Logger) *ParcelController {
	return &ParcelController{Service: s, Coordinator: coord, Log: log}
}

// GET /parcels?email= - admins see every parcel, others only their own
func (ctl *ParcelController) List(c *gin.Context) {
	parcels, err := ctl.Service.List(c.Request.Context(), middleware.CallerFrom(c), c.Query("email"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, parcels)
}

// GET /parcels/admin
func (ctl *ParcelController) ListAwaitingPickup(c *gin.Context) {
	parcels, err := ctl.Service.ListAwaitingPickup(c.Request.Context())
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, parcels)
}

// GET /parcels/assigned - rider
func (ctl *ParcelController) ListAssigned(c *gin.Context) {
	parcels, err := ctl.Service.ListAssigned(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, parcels)
}

// GET /parcels/:id
func (ctl *ParcelController) Get(c *gin.Context) {
	parcel, err := ctl.Service.Get(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, parcel)
}

// POST /parcels
func (ctl *ParcelController) Create(c *gin.Context) {
	var req dto.CreateParcelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	parcel, err := ctl.Service.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"insertedId": parcel.ID.Hex(), "parcel": parcel})
}

// DELETE /parcels/:id
func (ctl *ParcelController) Delete(c *gin.Context) {
	if err := ctl.Service.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedCount": 1})
}

// PATCH /parcels/assign-rider - admin
func (ctl *ParcelController) AssignRider(c *gin.Context) {
	var req dto.AssignRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	res, err := ctl.Coordinator.AssignRider(c.Request.Context(), req.ParcelID, req.RiderID)
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rider assigned", "result": res})
}

// PATCH /parcels/:id/deliver - assigned rider or admin
func (ctl *ParcelController) CompleteDelivery(c *gin.Context) {
	res, err := ctl.Coordinator.CompleteDelivery(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "parcel delivered", "result": res})
}
