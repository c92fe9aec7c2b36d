package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/ticket-checkin/internal/adapters/crdb"
	"github.com/robertarktes/ticket-checkin/internal/adapters/rabbit"
	"github.com/robertarktes/ticket-checkin/internal/config"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"github.com/robertarktes/ticket-checkin/internal/outbox"
)

// Standalone relay for deployments that run more than one API replica and
// want a single publisher process. SKIP LOCKED makes running both safe.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "checkin-outbox-publisher")
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

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer rabbitPub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := outbox.NewPublisher(repo, rabbitPub, logger, cfg.OutboxInterval).Run(ctx); err != nil {
		logger.Error("outbox publisher stopped: ", err)
	}
	logger.Info("Shutdown outbox publisher")
}
