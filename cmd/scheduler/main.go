package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/notification"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/money"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, "lending-scheduler"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Calendar dates (due windows) follow the scheduler timezone.
	time.Local = cfg.GetLocation()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to initialize database", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	redisClient, err := cache.OpenRedis(cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", err)
	}
	defer redisClient.Close()

	rates, err := cfg.GetExchangeRates()
	if err != nil {
		logger.Fatal("failed to parse exchange rates", err)
	}

	notificationRepo := repository.NewNotificationRepository(db)

	queue := notification.NewRedisQueue(redisClient, cfg.Worker.QueueKey)
	scanner := notification.NewScanner(repository.NewDebtRepository(db), notificationRepo, queue, notification.ScanOptions{
		DaysAhead:    cfg.Scheduler.DaysAhead,
		DedupWindow:  cfg.GetDedupWindow(),
		AdminGroupID: cfg.WhatsApp.AdminGroupID,
		Converter:    money.NewConverter(rates),
		BaseCurrency: cfg.Currency.Default,
	})

	provider := notification.NewWhatsAppProvider(cfg.WhatsApp.APIURL, cfg.WhatsApp.APIToken, cfg.GetWhatsAppTimeout())
	if !provider.Configured() {
		logger.Warn("whatsapp api not configured, deliveries will fail")
	}
	worker := notification.NewWorker(queue, provider, notificationRepo, notification.WorkerOptions{
		MaxAttempts:  cfg.Worker.MaxAttempts,
		RetryBackoff: cfg.GetRetryBackoff(),
		PollTimeout:  cfg.GetPollTimeout(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.GetLocation()))
	if err := setupCronJobs(ctx, c, cfg, scanner); err != nil {
		logger.Fatal("failed to schedule jobs", err)
	}
	c.Start()
	logger.Info("scheduler started", zap.String("timezone", cfg.Scheduler.Timezone))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx, cfg.Worker.Concurrency)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	cancel()
	wg.Wait()
	logger.Info("scheduler stopped")
}

func setupCronJobs(ctx context.Context, c *cron.Cron, cfg *config.Config, scanner *notification.Scanner) error {
	// Daily vencimiento reminders
	if _, err := c.AddFunc(cfg.Scheduler.VencimientoCron, func() {
		jobCtx := logger.WithRequestID(ctx, uuid.NewString())
		logger.CtxInfo(jobCtx, "running vencimiento scan")
		if _, err := scanner.Scan(jobCtx); err != nil {
			logger.CtxError(jobCtx, "vencimiento scan failed", err)
		}
	}); err != nil {
		return err
	}

	logger.Info("cron jobs scheduled", zap.String("vencimiento", cfg.Scheduler.VencimientoCron))
	return nil
}
