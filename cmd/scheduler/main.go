package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/coursebill/installment-engine/internal/config"
	"github.com/coursebill/installment-engine/internal/enrollment"
	"github.com/coursebill/installment-engine/internal/gateway"
	"github.com/coursebill/installment-engine/internal/notifier"
	"github.com/coursebill/installment-engine/internal/repository"
	"github.com/coursebill/installment-engine/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := newLogger(cfg)
	log.Info("Starting reminder scheduler...")

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
	gatewayClient := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.GetGatewayTimeout())
	dispatcher := newDispatcher(cfg)
	enrollmentSvc := enrollment.NewHTTPService(cfg.Reminder.EnrollmentURL, cfg.GetCollaboratorTimeout())
	locker := service.NewRedisLocker(redisClient)

	paymentService := service.NewPaymentService(planRepo, gatewayClient, dispatcher, enrollmentSvc, locker, cfg, log)

	c := cron.New(cron.WithSeconds())
	setupCronJobs(c, paymentService, cfg, log)

	c.Start()
	log.Info("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	ctx := c.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
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

func setupCronJobs(c *cron.Cron, paymentService *service.PaymentService, cfg *config.Config, log *logrus.Logger) {
	// Nightly at midnight: flip pending past-due installments to overdue so
	// stats and reminder classification stay current between sweeps.
	_, err := c.AddFunc("0 0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		marked, err := paymentService.MarkOverdueInstallments(ctx)
		if err != nil {
			log.WithError(err).Error("overdue marking job failed")
			return
		}
		log.WithField("count", marked).Info("overdue marking job completed")
	})
	if err != nil {
		log.WithError(err).Error("failed to schedule overdue marking job")
	}

	// Daily at 9 AM: reminder sweep. The sweep self-excludes, so a manual
	// trigger through the API while this runs is skipped, not queued. The
	// execution budget is the lock TTL: the sweep is cancelled before its
	// lock can expire under it.
	_, err = c.AddFunc("0 0 9 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.GetSweepLockTTL())
		defer cancel()

		result, err := paymentService.RunReminderSweep(ctx)
		if err != nil {
			log.WithError(err).Error("reminder sweep job failed")
			return
		}
		log.WithFields(logrus.Fields{
			"plans_scanned":  result.PlansScanned,
			"reminders_sent": result.RemindersSent,
			"skipped":        result.Skipped,
		}).Info("reminder sweep job completed")
	})
	if err != nil {
		log.WithError(err).Error("failed to schedule reminder sweep job")
	}

	log.Info("Cron jobs scheduled successfully")
}
