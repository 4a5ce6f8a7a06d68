package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/handler"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/internal/siaf"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, "lending-api"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", err)
	}
	defer db.Close()

	if err := runMigrations(db, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("failed to apply migrations", err)
	}

	// Initialize Redis
	redisClient, err := cache.OpenRedis(cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	uow := repository.NewUnitOfWork(db)
	schedules := cache.NewScheduleCache(redisClient, cfg.GetScheduleCacheTTL())

	// Initialize services
	loanService := service.NewLoanService(loanRepo, uow, schedules)
	paymentService := service.NewPaymentService(loanRepo, paymentRepo, uow, schedules)

	siafClient := siaf.NewClient(siaf.Options{
		ProxyURL:       cfg.SIAF.ProxyURL,
		Secret:         cfg.SIAF.ProxySecret,
		CaptchaTimeout: cfg.GetCaptchaTimeout(),
		ConsultTimeout: cfg.GetConsultTimeout(),
	})
	siafService := siaf.NewService(siafClient, siaf.NewSessionStore(redisClient, cfg.GetSIAFSessionTTL()))

	paymentLimiter, err := handler.NewRateLimiter(cfg.RateLimit.Payments)
	if err != nil {
		logger.Fatal("failed to build payment rate limiter", err)
	}

	var optional []handler.OptionalCheck
	if siafClient.Configured() {
		optional = append(optional, handler.OptionalCheck{Name: "siaf", Check: siafClient.Health})
	}
	health := handler.NewHealthHandler(cfg.GetHealthTimeout(), map[string]handler.HealthCheck{
		"database": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}, optional...)

	// Setup routes
	router := handler.NewRouter(handler.Handlers{
		Loans:          handler.NewLoanHandler(loanService),
		Payments:       handler.NewPaymentHandler(paymentService),
		SIAF:           handler.NewSIAFHandler(siafService),
		Health:         health,
		PaymentLimiter: paymentLimiter,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", err)
		return
	}

	logger.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func runMigrations(db *sqlx.DB, path string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no new migrations to apply")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("database migrations applied")
	return nil
}
