package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/companyhub/internal/company/auth"
	"github.com/gartstein/companyhub/internal/company/config"
	"github.com/gartstein/companyhub/internal/company/controller"
	"github.com/gartstein/companyhub/internal/company/db"
	"github.com/gartstein/companyhub/internal/company/events"
	"github.com/gartstein/companyhub/internal/company/handlers"
	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/gartstein/companyhub/internal/company/scheduler"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// the logger level comes from the config
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger := initLogger(cfg)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := db.Connect(ctx, initDatabase(cfg), cfg.DB.ConnectTimeout, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	m := metrics.New()
	if sqlDB, err := repo.SQLDB(); err == nil {
		m.RegisterDB(sqlDB, cfg.DB.Name)
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	notificationSvc := controller.NewNotificationService(repo, logger)

	producer, consumer, err := initEvents(ctx, cfg, notificationSvc, logger)
	if err != nil {
		logger.Fatal("failed to initialize events", zap.Error(err))
	}
	defer producer.Close()

	services := handlers.Services{
		Users:     controller.NewUserService(repo, tokens, logger),
		Companies: controller.NewCompanyService(repo, m, logger),
		Invites: controller.NewInviteService(repo, producer, m, logger,
			controller.WithConcealedForeignInvites(cfg.Invites.ConcealForeign)),
		Quizzes:       controller.NewQuizService(repo, producer, m, logger),
		Notifications: notificationSvc,
		DB:            repo,
	}

	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs, err = scheduler.NewScheduler(scheduler.Config{
			ReminderSpec:  cfg.Scheduler.ReminderSpec,
			ReminderAfter: cfg.Scheduler.ReminderAfter,
			JobTimeout:    cfg.Scheduler.JobTimeout,
		}, notificationSvc, m, logger)
		if err != nil {
			logger.Fatal("failed to initialize scheduler", zap.Error(err))
		}
		jobs.Start()
	}

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, tokens, m, logger)
	if err := server.RegisterHTTPHandlers(services); err != nil {
		logger.Fatal("Failed to register HTTP handlers", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	waitForShutdown(server, errCh, logger)

	if jobs != nil {
		jobs.Stop()
	}
	cancel()
	if consumer != nil {
		<-consumer.Done()
		consumer.Close()
	}
}

type eventProducer interface {
	controller.EventProducer
	Close()
}

// initEvents wires Kafka when enabled. Otherwise events are logged and fed
// straight to the notification service.
func initEvents(ctx context.Context, cfg *config.Config, notifications *controller.NotificationService, logger *zap.Logger) (eventProducer, *events.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return events.NewLogProducer(logger, notifications.HandleEvent), nil, nil
	}

	producer, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.DialTimeout, logger)
	if err != nil {
		return nil, nil, err
	}

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, logger)
	consumer.RegisterHandler(notifications.HandleEvent)
	consumer.Start(ctx)
	return producer, consumer, nil
}

// initLogger builds a production logger, or a development one when configured.
func initLogger(cfg *config.Config) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func initDatabase(cfg *config.Config) *db.Config {
	return &db.Config{
		Driver:       cfg.DB.Driver,
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		DBName:       cfg.DB.Name,
		SSLMode:      cfg.DB.SSLMode,
		Path:         cfg.DB.Path,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	}
}

// waitForShutdown blocks until an interrupt, SIGTERM or a server failure,
// then shuts down the servers.
func waitForShutdown(server *handlers.Server, errCh <-chan error, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	server.Stop()
	logger.Info("Servers stopped properly")
}
