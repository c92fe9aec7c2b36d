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
	"github.com/robertarktes/ticket-checkin/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/ticket-checkin/internal/adapters/mongo"
	"github.com/robertarktes/ticket-checkin/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/ticket-checkin/internal/adapters/redis"
	"github.com/robertarktes/ticket-checkin/internal/checkin"
	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/config"
	httphandler "github.com/robertarktes/ticket-checkin/internal/http"
	"github.com/robertarktes/ticket-checkin/internal/idempotency"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"github.com/robertarktes/ticket-checkin/internal/outbox"
	"github.com/robertarktes/ticket-checkin/internal/rateLimit"
	"github.com/robertarktes/ticket-checkin/internal/readmodel"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "checkin-api")
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
	crdbRepo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("checkin")
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	auditLog := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer rabbitPub.Close()

	engine := checkin.NewEngine(crdbRepo, clock.NewSystem(),
		checkin.WithTimeout(cfg.EngineTimeout),
		checkin.WithAuditor(auditLog),
		checkin.WithLogger(logger),
	)
	tallies := readmodel.NewService(crdbRepo, redisCache, cfg.TallyTTL, logger)

	checks := map[string]httphandler.Pinger{
		"crdb":  crdbRepo,
		"redis": pingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		"mongo": pingFunc(func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }),
	}
	handlers := httphandler.NewHandlers(engine, tallies, catalog, auditLog, idemp, checks)
	r := httphandler.SetupRouter(handlers, logger, rl, httphandler.RateLimits{
		PerStation: cfg.RateLimitPerStation,
		PerIP:      cfg.RateLimitPerIP,
		Period:     time.Minute,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.HTTPAddr).Info("checkin api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return outbox.NewPublisher(crdbRepo, rabbitPub, logger, cfg.OutboxInterval).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error: ", err)
	}
	engine.Drain()
	logger.Info("Server exiting")
}
