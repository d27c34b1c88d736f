package controller

import (
	"net/http"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/middleware"
	"parcel-delivery-service/internal/service"

	"github.com/gin-gonic/gin"
)

type RiderController struct {
	Service     *service.RiderService
	Coordinator *service.Coordinator
	Log         logger.Logger
}

func NewRiderController(s *service.RiderService, coord *service.Coordinator, log logger.Logger) *RiderController {
	return &RiderController{Service: s, Coordinator: coord, Log: log}
}

// GET /riders?district=&status= - public
func (ctl *RiderController) ListByDistrict(c *gin.Context) {
	riders, err := ctl.Service.ListByDistrict(c.Request.Context(), c.Query("district"), c.Query("status"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, riders)
}

// GET /riders/pending - admin
func (ctl *RiderController) ListPending(c *gin.Context) {
	riders, err := ctl.Service.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, riders)
}

// GET /riders/active - admin
func (ctl *RiderController) ListActive(c *gin.Context) {
	riders, err := ctl.Service.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, riders)
}

// POST /riders
func (ctl *RiderController) Apply(c *gin.Context) {
	var req dto.RiderApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	rider, err := ctl.Service.Apply(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"insertedId": rider.ID.Hex(), "rider": rider})
}

// PATCH /riders/approve/:id - admin
func (ctl *RiderController) Approve(c *gin.Context) {
	res, err := ctl.Coordinator.ApproveRider(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rider approved", "result": res})
}

// PATCH /riders/deactivate/:id - admin
func (ctl *RiderController) Deactivate(c *gin.Context) {
	res, err := ctl.Coordinator.DeactivateRider(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rider deactivated", "result": res})
}

// DELETE /riders/:id - admin
func (ctl *RiderController) Remove(c *gin.Context) {
	res, err := ctl.Coordinator.RemoveRider(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rider removed", "result": res})
}
