package appServer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gathering-app/config"
	repository "gathering-app/internal/database/postgres"
	"gathering-app/internal/service"
	"gathering-app/internal/transport"
	"gathering-app/internal/worker"

	"gathering-app/pkg/postgres"
	"gathering-app/pkg/queue"
	"gathering-app/pkg/redis"
	"gathering-app/pkg/scheduler"
	"gathering-app/pkg/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12}, // ban on outdate TLS certificate
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	gatheringRepo := repository.NewGatheringRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Initialize Telegram bot
	var telegramBot *telegram.Bot
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		telegramBot = telegram.NewBot(cfg.Telegram.BotToken)
		logrus.Info("Telegram bot initialized")
	} else {
		logrus.Warn("Telegram bot disabled, notifications will not be delivered")
	}

	var redisQueue queue.Queue
	var taskPublisher service.TaskPublisher

	if cfg.Redis.Host != "" {
		queueConfig := queue.DefaultRedisQueueConfig()
		queueConfig.Addr = fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		queueConfig.Password = cfg.Redis.Password
		queueConfig.DB = cfg.Redis.DB

		retryManager := queue.NewRetryManager(3, 5*time.Second)
		redisClient := redis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()
		dlqHandler := queue.NewDefaultDLQHandler(redisClient, queueConfig.DLQ, queueConfig.MainQueue)

		redisQueue, err = queue.NewRedisQueue(queueConfig, retryManager, dlqHandler)
		if err != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", err)
		} else {
			logrus.Info("Redis queue initialized")
			taskPublisher = service.NewQueueAdapter(redisQueue)
		}
	}

	// Initialize services
	reminderLead := time.Duration(cfg.Worker.ReminderHours) * time.Hour
	gatheringService := service.NewGatheringService(gatheringRepo, taskPublisher, reminderLead)
	bookingService := service.NewBookingService(bookingRepo, gatheringRepo, profileRepo, taskPublisher, service.BookingConfig{
		RequireFullForWaitlist: cfg.Booking.RequireFullForWaitlist,
		AlmostFullThreshold:    cfg.Booking.AlmostFullThreshold,
	})
	profileService := service.NewProfileService(profileRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start notification consumer if queue is available
	if redisQueue != nil {
		// A nil *telegram.Bot must not reach the worker as a non-nil
		// interface value.
		var notifier worker.Notifier
		if telegramBot != nil {
			notifier = telegramBot
		}
		notificationWorker := worker.NewNotificationWorker(
			gatheringService, profileService, notifier,
			cfg.Telegram.ChatID, cfg.App.BaseURL)

		go func() {
			if err := redisQueue.Subscribe(ctx, notificationWorker.HandleTask); err != nil {
				logrus.Errorf("Queue subscriber error: %v", err)
			}
		}()
		logrus.Info("Queue subscriber started")

		// Periodic queue health reporting
		if rq, ok := redisQueue.(*queue.RedisQueue); ok {
			statsScheduler := scheduler.NewScheduler("queue-stats", 5*time.Minute, func(ctx context.Context) error {
				stats, err := rq.GetQueueStats(ctx)
				if err != nil {
					return err
				}
				logrus.WithFields(logrus.Fields{
					"main":    stats.MainQueue,
					"delayed": stats.DelayedQueue,
					"dlq":     stats.DLQ,
				}).Info("queue stats")
				return nil
			})
			go statsScheduler.Start(ctx)
		}
	}

	// Initialize worker that closes finished gatherings
	closeInterval := cfg.Worker.CloseInterval
	if closeInterval <= 0 {
		closeInterval = time.Minute
	}
	closeWorker := worker.NewGatheringCloseWorker(gatheringService, closeInterval)
	go closeWorker.Start(ctx)
	logrus.Info("Gathering close worker started")

	// Initialize handlers
	gatheringHandler := transport.NewGatheringHandler(gatheringService)
	bookingHandler := transport.NewBookingHandler(bookingService)
	profileHandler := transport.NewProfileHandler(profileService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(gatheringHandler, bookingHandler, profileHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	if redisQueue != nil {
		if err := redisQueue.Close(); err != nil {
			logrus.Errorf("error occured on queue shutting down: %s", err.Error())
		}
	}
}
