package controller

import (
	"net/http"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/middleware"
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/service"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	Service     *service.UserService
	Coordinator *service.Coordinator
	Log         logger.Logger
}

func NewUserController(s *service.UserService, coord *service.Coordinator, log logger.Logger) *UserController {
	return &UserController{Service: s, Coordinator: coord, Log: log}
}

// POST /users - public, called after every sign-in
func (ctl *UserController) Upsert(c *gin.Context) {
	var req dto.UpsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	created, err := ctl.Service.UpsertLogin(c.Request.Context(), req)
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, gin.H{"message": "user created", "inserted": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user already exists", "inserted": false, "updated": true})
}

// GET /user/role - the role loaded by the auth chain
func (ctl *UserController) Role(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if caller.Role == model.RoleNone {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": caller.Role})
}

// GET /user/search?email= - admin
func (ctl *UserController) Search(c *gin.Context) {
	user, err := ctl.Service.Search(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PATCH /user/update-role - admin
func (ctl *UserController) UpdateRole(c *gin.Context) {
	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	modified, err := ctl.Coordinator.ChangeRole(c.Request.Context(), req.Email, model.ParseRole(req.Role))
	if err != nil {
		respondError(c, ctl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role updated", "modifiedCount": modified})
}
