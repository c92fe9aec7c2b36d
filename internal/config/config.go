package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr            string
	CRDBDSN             string
	MongoURI            string
	RedisAddr           string
	RabbitURL           string
	OTLPEndpoint        string
	EngineTimeout       time.Duration
	TallyTTL            time.Duration
	IdempotencyTTL      time.Duration
	RateLimitPerStation int
	RateLimitPerIP      int
	OutboxInterval      time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		CRDBDSN:             os.Getenv("CRDB_DSN"),
		MongoURI:            os.Getenv("MONGO_URI"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RabbitURL:           os.Getenv("RABBIT_URL"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EngineTimeout:       durationOr("ENGINE_TIMEOUT", 3*time.Second),
		TallyTTL:            durationOr("TALLY_TTL", 15*time.Second),
		IdempotencyTTL:      durationOr("IDEMPOTENCY_TTL", time.Hour),
		RateLimitPerStation: intOr("RATE_LIMIT_PER_STATION", 120),
		RateLimitPerIP:      intOr("RATE_LIMIT_PER_IP", 600),
		OutboxInterval:      durationOr("OUTBOX_INTERVAL", time.Second),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	d, _ := time.ParseDuration(os.Getenv(key))
	if d <= 0 {
		return def
	}
	return d
}

func intOr(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
