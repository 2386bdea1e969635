package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/coursebill/installment-engine/internal/config"
	"github.com/coursebill/installment-engine/internal/enrollment"
	"github.com/coursebill/installment-engine/internal/gateway"
	"github.com/coursebill/installment-engine/internal/handler"
	"github.com/coursebill/installment-engine/internal/notifier"
	"github.com/coursebill/installment-engine/internal/repository"
	"github.com/coursebill/installment-engine/internal/service"
	"github.com/coursebill/installment-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := newLogger(cfg)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	planRepo := repository.NewPlanRepository(db)

	gatewayClient := gateway.NewHTTPClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.KeyID,
		cfg.Gateway.KeySecret,
		cfg.GetGatewayTimeout(),
	)

	dispatcher := newDispatcher(cfg)
	enrollmentSvc := enrollment.NewHTTPService(cfg.Reminder.EnrollmentURL, cfg.GetCollaboratorTimeout())
	locker := service.NewRedisLocker(redisClient)

	paymentService := service.NewPaymentService(planRepo, gatewayClient, dispatcher, enrollmentSvc, locker, cfg, log)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(paymentHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log
}

func newDispatcher(cfg *config.Config) notifier.Dispatcher {
	if cfg.Notifier.Endpoint == "" {
		return notifier.NewLogDispatcher()
	}
	return notifier.NewWebhookDispatcher(cfg.Notifier.Endpoint, cfg.GetNotifierTimeout())
}

func setupRoutes(paymentHandler *handler.PaymentHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/plans", paymentHandler.CreatePlan).Methods("POST")
	api.HandleFunc("/plans/{planId}", paymentHandler.GetPlan).Methods("GET")
	api.HandleFunc("/plans/{planId}/installments/{number}/order", paymentHandler.InitiatePayment).Methods("POST")
	api.HandleFunc("/payments/callback", paymentHandler.SettlementCallback).Methods("POST")
	api.HandleFunc("/reminders/sweep", paymentHandler.RunReminderSweep).Methods("POST")
	api.HandleFunc("/stats", paymentHandler.GetStats).Methods("GET")

	return router
}
