package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/ticket-checkin/internal/adapters/crdb"
	"github.com/robertarktes/ticket-checkin/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/ticket-checkin/internal/adapters/redis"
	"github.com/robertarktes/ticket-checkin/internal/config"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"github.com/robertarktes/ticket-checkin/internal/readmodel"
)

const queue = "checkin.tally-projector"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "checkin-tally-projector")
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

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	tallies := readmodel.NewService(crdb.NewRepository(pool), redisadapter.NewCache(redisClient), cfg.TallyTTL, logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, queue, crdb.EventTicketCheckedIn)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	logger.WithField("queue", queue).Info("tally projector started")
	if err := readmodel.NewProjector(tallies, logger).Run(ctx, deliveries); err != nil {
		logger.Error("tally projector stopped: ", err)
	}
	logger.Info("Shutdown tally projector")
}
