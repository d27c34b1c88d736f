package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"

	"parcel-delivery-service/internal/config"
	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/payment"
	"parcel-delivery-service/internal/rabbit"
	"parcel-delivery-service/internal/repository"
	"parcel-delivery-service/internal/router"
	"parcel-delivery-service/internal/service"
)

func main() {
	envErr := config.LoadDotEnv()
	cfg := config.Load()
	log := logger.Init(logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if envErr != nil {
		log.Debug(".env not loaded", "error", envErr)
	}
	gin.SetMode(gin.ReleaseMode)

	// MongoDB connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := repository.Connect(ctx, cfg.MongoURI)
	cancel()
	if err != nil {
		log.Error("mongo connect failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Warn("mongo disconnect failed", "error", err)
		}
	}()
	db := client.Database(cfg.MongoDBName)
	if err := repository.EnsureIndexes(db, log); err != nil {
		log.Warn("index setup incomplete", "error", err)
	}

	// Repositories
	users := repository.NewMongoUserRepository(db)
	parcels := repository.NewMongoParcelRepository(db)
	riders := repository.NewMongoRiderRepository(db)
	payments := repository.NewMongoPaymentRepository(db)
	tracking := repository.NewMongoTrackingRepository(db)
	tx := repository.NewMongoTxRunner(client, cfg.MongoTransactions)

	// RabbitMQ connection; the bus is optional
	var events service.EventPublisher = service.NopPublisher
	var conn *amqp091.Connection
	if cfg.RabbitURL != "" {
		conn, err = amqp091.Dial(cfg.RabbitURL)
		if err != nil {
			log.Error("rabbitmq connect failed", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		pubCh, err := conn.Channel()
		if err != nil {
			log.Error("rabbitmq channel failed", "error", err)
			os.Exit(1)
		}
		if err := rabbit.DeclareExchanges(pubCh); err != nil {
			log.Error("rabbitmq exchange setup failed", "error", err)
			os.Exit(1)
		}
		events = rabbit.NewPublisher(pubCh, rabbit.EventsExchange)
	} else {
		log.Info("RABBIT_URL not set, event bus disabled")
	}

	// Services
	verifier := newVerifier(cfg, log)
	guard := service.NewAccessGuard(verifier, users)
	coord := service.NewCoordinator(parcels, riders, users, payments, tx, events, log)
	trackingSvc := service.NewTrackingService(tracking)

	if conn != nil {
		subCh, err := conn.Channel()
		if err != nil {
			log.Error("rabbitmq channel failed", "error", err)
			os.Exit(1)
		}
		if err := rabbit.SetupConsumers(subCh, rabbit.NewTrackingConsumer(trackingSvc, log), log); err != nil {
			log.Error("rabbitmq consumer setup failed", "error", err)
			os.Exit(1)
		}
	}

	engine := router.New(router.Deps{
		Guard:          guard,
		Parcels:        service.NewParcelService(parcels),
		Payments:       service.NewPaymentService(payment.NewStripeClient(cfg.StripeAPIURL, cfg.StripeSecretKey), payments, coord, cfg.PaymentCurrency),
		Users:          service.NewUserService(users),
		Riders:         service.NewRiderService(riders),
		Tracking:       trackingSvc,
		Coordinator:    coord,
		Store:          repository.NewPinger(client),
		Log:            log,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("parcel delivery service listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func newVerifier(cfg *config.Config, log logger.Logger) service.IdentityVerifier {
	if cfg.AuthMode == config.AuthModeJWT {
		if cfg.JWTSecret == "" {
			log.Warn("AUTH_MODE=jwt without JWT_SECRET; token verification will fail")
		}
		return service.NewJWTVerifier(cfg.JWTSecret, cfg.JWTAudience)
	}
	return service.NewRemoteVerifier(cfg.AuthURL)
}
