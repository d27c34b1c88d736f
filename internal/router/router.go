package router

import (
	"context"
	"net/http"
	"slices"
	"time"

	"parcel-delivery-service/internal/controller"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/middleware"
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Guard          *service.AccessGuard
	Parcels        *service.ParcelService
	Payments       *service.PaymentService
	Users          *service.UserService
	Riders         *service.RiderService
	Tracking       *service.TrackingService
	Coordinator    *service.Coordinator
	Store          Pinger
	Log            logger.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func New(d Deps) *gin.Engine {
	controller.UseJSONFieldNames()
	if d.Log == nil {
		d.Log = logger.L()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))
	r.Use(middleware.Timeout(d.RequestTimeout))

	parcels := controller.NewParcelController(d.Parcels, d.Coordinator, d.Log)
	payments := controller.NewPaymentController(d.Payments, d.Log)
	users := controller.NewUserController(d.Users, d.Coordinator, d.Log)
	riders := controller.NewRiderController(d.Riders, d.Coordinator, d.Log)
	tracking := controller.NewTrackingController(d.Tracking, d.Log)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Parcel delivery server is running")
	})
	r.GET("/healthz", health(d.Store))

	// Public routes
	r.POST("/users", users.Upsert)
	r.GET("/riders", riders.ListByDistrict)

	// Authenticated routes; the caller's role is loaded once per request
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.Guard), middleware.WithRole(d.Guard))
	auth.GET("/user/role", users.Role)

	// Everything else needs an identity record
	member := auth.Group("/")
	member.Use(middleware.RequireRole(d.Guard, model.RoleUser))
	admin := middleware.AdminOnly(d.Guard)
	rider := middleware.RequireRole(d.Guard, model.RoleRider)

	member.GET("/parcels", parcels.List)
	member.GET("/parcels/admin", admin, parcels.ListAwaitingPickup)
	member.GET("/parcels/assigned", rider, parcels.ListAssigned)
	member.GET("/parcels/:id", parcels.Get)
	member.POST("/parcels", parcels.Create)
	member.DELETE("/parcels/:id", parcels.Delete)
	member.PATCH("/parcels/assign-rider", admin, parcels.AssignRider)
	member.PATCH("/parcels/:id/deliver", rider, parcels.CompleteDelivery)

	member.POST("/create-payment-intent", payments.CreateIntent)
	member.POST("/save-payment", payments.Save)
	member.GET("/all-payments", admin, payments.ListAll)
	member.GET("/my-payments/:email", middleware.OwnerOnly("email"), payments.ListMine)

	member.POST("/tracking", tracking.Record)
	member.GET("/tracking/:trackingId", tracking.History)

	member.GET("/user/search", admin, users.Search)
	member.PATCH("/user/update-role", admin, users.UpdateRole)

	member.POST("/riders", riders.Apply)
	member.GET("/riders/pending", admin, riders.ListPending)
	member.GET("/riders/active", admin, riders.ListActive)
	member.PATCH("/riders/approve/:id", admin, riders.Approve)
	member.PATCH("/riders/deactivate/:id", admin, riders.Deactivate)
	member.PATCH("/riders/assign-rider", admin, parcels.AssignRider)
	member.DELETE("/riders/:id", admin, riders.Remove)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func health(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil {
			if err := store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
