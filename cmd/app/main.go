package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/wichananm65/rosilias-store/internal/catalog"
	"github.com/wichananm65/rosilias-store/internal/config"
	"github.com/wichananm65/rosilias-store/internal/logging"
	"github.com/wichananm65/rosilias-store/internal/metrics"
	"github.com/wichananm65/rosilias-store/internal/order"
	"github.com/wichananm65/rosilias-store/internal/payment"
	"github.com/wichananm65/rosilias-store/internal/user"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	log := logging.Init("api", cfg.App.LogFile, cfg.App.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	app.Use(logging.Middleware(log))
	app.Use(logging.Recover())
	setupCORS(app)
	app.Use(metrics.Middleware())

	db := mustOpenDB(cfg, log)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	for _, ensure := range []func(context.Context, *sql.DB) error{catalog.EnsureSchema, user.EnsureSchema, order.EnsureSchema} {
		if err := ensure(ctx, db); err != nil {
			cancel()
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
	}
	cancel()

	rdb := openRedis(cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	userService := user.NewService(user.NewPostgresRepository(db), cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	userHandler := user.NewHandler(userService)

	catalogHandler := catalog.NewHandler(catalog.NewService(catalog.NewPostgresRepository(db)))

	orderService := order.NewService(order.NewPostgresRepository(db), log)
	orderHandler := order.NewHandler(orderService, user.OptionalAuth(cfg.Security.JWTSecret))

	processor := payment.WithBreaker(payment.NewStripeProcessor(cfg.Stripe.SecretKey, cfg.Stripe.Timeout), "stripe", log)
	intentHandler := payment.NewIntentHandler(cfg.Stripe.SecretKey, processor, orderService, cfg.Stripe.Currency)

	var processed payment.ProcessedStore = payment.NewMemoryProcessedStore()
	if rdb != nil {
		processed = payment.NewRedisProcessedStore(rdb, cfg.Idempotency.TTL)
	}
	publisher := payment.NewPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers)
	if kp, ok := publisher.(*payment.KafkaPublisher); ok {
		defer kp.Close()
	}
	reconciler := payment.NewReconciler(orderService, processed, publisher, log)
	webhookHandler := payment.NewWebhookHandler(cfg.Stripe.SecretKey, payment.NewStripeVerifier(cfg.Stripe.WebhookSecret), reconciler)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "database": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	userHandler.RegisterPublicRoutes(app)
	catalogHandler.RegisterPublicRoutes(app)
	orderHandler.RegisterPublicRoutes(app)
	intentHandler.RegisterPublicRoutes(app)
	webhookHandler.RegisterPublicRoutes(app)

	app.Use(user.RequireAuth(cfg.Security.JWTSecret))

	userHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	log.Info("listening", "addr", cfg.App.HTTPAddr)
	if err := app.Listen(cfg.App.HTTPAddr); err != nil {
		log.Error("server stopped", "error", err)
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Stripe-Signature",
	}))
}

func mustOpenDB(cfg config.Config, log *slog.Logger) *sql.DB {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		log.Error("database open failed", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	return db
}

// openRedis returns nil when Redis is not configured or not reachable; the
// webhook then dedupes in process memory only.
func openRedis(cfg config.Config, log *slog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		log.Warn("redis not configured; processed-event store is in memory")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable; processed-event store is in memory", "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
