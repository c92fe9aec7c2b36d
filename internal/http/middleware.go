package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelhttp "go.opentelemetry.io/otel/propagation"
)

type loggerKey struct{}

var fallbackLogger = observability.NopLogger()

func loggerFrom(ctx context.Context) observability.Logger {
	if l, ok := ctx.Value(loggerKey{}).(observability.Logger); ok {
		return l
	}
	return fallbackLogger
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := map[string]interface{}{"request_id": middleware.GetReqID(r.Context())}
			if station := r.Header.Get(StationHeader); station != "" {
				fields["station_id"] = station
			}
			ctx := context.WithValue(r.Context(), loggerKey{}, logger.WithFields(fields))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdempotencyMiddleware only checks the key's shape. The key is optional;
// replay happens in the scan handler.
func IdempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("Idempotency-Key")
		if key != "" && (len(key) < 16 || len(key) > 128) {
			writeError(w, http.StatusBadRequest, codeInvalidIdempotency, "invalid Idempotency-Key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type Limiter interface {
	Allow(ctx context.Context, key string, rate int, period time.Duration) bool
}

type RateLimits struct {
	PerStation int
	PerIP      int
	Period     time.Duration
}

func RateLimitMiddleware(rl Limiter, limits RateLimits) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if station := r.Header.Get(StationHeader); station != "" {
				if !rl.Allow(r.Context(), "station:"+station, limits.PerStation, limits.Period) {
					observability.RateLimitExceeded.WithLabelValues("station").Inc()
					writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
					return
				}
			}
			if !rl.Allow(r.Context(), "ip:"+ip, limits.PerIP, limits.Period) {
				observability.RateLimitExceeded.WithLabelValues("ip").Inc()
				writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), otelhttp.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
			attribute.String("checkin.station_id", r.Header.Get(StationHeader)),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MetricsMiddleware labels by route pattern so ticket codes never become
// label values.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(status), r.Method).Inc()
	})
}
