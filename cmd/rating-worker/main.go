package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/crdb"
	mongoadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/mongo"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/rabbit"
	redisadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/redis"
	"github.com/utsavplanner/bookings-and-payments/internal/config"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
	"github.com/utsavplanner/bookings-and-payments/internal/rating"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

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
	vendors := mongoadapter.NewVendorStore(mongoClient.Database("utsavplanner"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, "ratings.q", "booking.rated")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	agg := rating.NewAggregator(repo, vendors, cache, time.Now, logger)
	worker := NewRatingWorker(consumer, agg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := worker.Run(ctx); err != nil {
			log.Fatalf("rating worker stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown rating worker")
}

type RatingWorker struct {
	consumer *rabbit.Consumer
	agg      *rating.Aggregator
	logger   observability.Logger
}

func NewRatingWorker(consumer *rabbit.Consumer, agg *rating.Aggregator, logger observability.Logger) *RatingWorker {
	return &RatingWorker{consumer: consumer, agg: agg, logger: logger}
}

type ratedEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Rating    int       `json:"rating"`
}

func (w *RatingWorker) Run(ctx context.Context) error {
	deliveries, err := w.consumer.Consume(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("Rating worker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *RatingWorker) handle(ctx context.Context, d amqp.Delivery) {
	var evt ratedEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		w.logger.WithField("error", err.Error()).Error("bad rating event payload")
		d.Nack(false, false)
		return
	}
	if evt.VendorID == uuid.Nil {
		d.Nack(false, false)
		return
	}

	if err := w.recomputeWithRetry(ctx, evt.VendorID); err != nil {
		w.logger.WithField("error", err.Error()).WithField("vendor_id", evt.VendorID.String()).Error("rating recompute failed after retries")
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func (w *RatingWorker) recomputeWithRetry(ctx context.Context, vendorID uuid.UUID) error {
	maxRetries := 3
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = w.agg.Recompute(ctx, vendorID); err == nil {
			return nil
		}
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
