package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/crdb"
	mongoadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/mongo"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/rabbit"
	redisadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/redis"
	"github.com/utsavplanner/bookings-and-payments/internal/auth"
	"github.com/utsavplanner/bookings-and-payments/internal/config"
	"github.com/utsavplanner/bookings-and-payments/internal/gateway/razorpay"
	httphandler "github.com/utsavplanner/bookings-and-payments/internal/http"
	"github.com/utsavplanner/bookings-and-payments/internal/idempotency"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
	"github.com/utsavplanner/bookings-and-payments/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("utsavplanner")
	events := mongoadapter.NewEventStore(mongoDB, logger)
	vendors := mongoadapter.NewVendorStore(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)
	if err := vendors.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("failed to ensure vendor indexes: %v", err)
	}

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpaySecret,
		BaseURL:   cfg.GatewayBaseURL,
		Timeout:   cfg.GatewayTimeout,
	})

	jwtSvc := auth.NewService(cfg.JWTSecret, 24*time.Hour)

	handlers := httphandler.NewHandlers(cfg, repo, events, vendors, audit, cache, idemp, gateway, rabbitPub, time.Now, logger)

	r := httphandler.SetupRouter(handlers, logger, jwtSvc, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
