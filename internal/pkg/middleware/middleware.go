// Package middleware provides HTTP middleware for the vodworks API.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"vodworks/internal/httpkit"
	"vodworks/internal/pkg/logger"
)

// RequestIDHeader is the header name for request IDs.
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	size        int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// RequestID adds a unique request ID to each request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to response header
		w.Header().Set(RequestIDHeader, requestID)

		// Add to context
		ctx := logger.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging logs HTTP requests with structured logging.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			// Get request ID from context
			reqLog := log.FromContext(r.Context())

			// Log request start at debug level
			reqLog.Debug("request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			// Process request
			next.ServeHTTP(wrapped, r)

			// Calculate duration
			duration := time.Since(start)

			// Determine log level based on status
			logFn := reqLog.Info
			if wrapped.status >= 500 {
				logFn = reqLog.Error
			} else if wrapped.status >= 400 {
				logFn = reqLog.Warn
			}

			// Log request completion
			logFn("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"size", wrapped.size,
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

// Recovery recovers from panics and logs them.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					// Get stack trace
					stack := debug.Stack()

					// Log the panic
					reqLog := log.FromContext(r.Context())
					reqLog.Error("panic recovered",
						"panic", rec,
						"stack", string(stack),
						"method", r.Method,
						"path", r.URL.Path,
					)

					// Return 500 error
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// LatencySink receives one sample per completed request.
type LatencySink interface {
	RecordAPILatency(ctx context.Context, runID *string, route, method, status string, latencyMs int64, concurrent *int32) error
}

// APIMetrics records one latency sample per request, tagged with the chi
// route pattern so per-video URLs do not fan out into distinct routes.
// Recording failures only log; they never affect the response.
func APIMetrics(sink LatencySink, log *logger.Logger) func(http.Handler) http.Handler {
	var inflight int32
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			concurrent := atomic.AddInt32(&inflight, 1)
			defer atomic.AddInt32(&inflight, -1)

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			// El request context puede estar cancelado si el cliente cortó;
			// la muestra se guarda igual.
			ctx := context.WithoutCancel(r.Context())
			err := sink.RecordAPILatency(ctx, nil, route, r.Method,
				strconv.Itoa(wrapped.status), time.Since(start).Milliseconds(), &concurrent)
			if err != nil {
				log.FromContext(r.Context()).Warn("api latency record failed",
					"error", err,
					"route", route,
				)
			}
		})
	}
}

// RateLimit caps requests per client IP in fixed one-minute windows.
// A limit of zero or less disables the middleware.
func RateLimit(limit int) func(http.Handler) http.Handler {
	rl := &rateLimiter{limit: limit, windows: make(map[string]*rateWindow)}
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(requestIP(r), time.Now()) {
				w.Header().Set("Retry-After", "60")
				httpkit.WriteErr(w, 429, "RATE_LIMITED", "Rate limit exceeded. Please try again later.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type rateWindow struct {
	start time.Time
	count int
}

type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	windows map[string]*rateWindow
}

// purgeThreshold bounds the window map: once it grows past this many
// entries, expired windows are dropped on the next rollover.
const purgeThreshold = 10000

func (rl *rateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wdw := rl.windows[key]
	if wdw == nil || now.Sub(wdw.start) >= time.Minute {
		if len(rl.windows) > purgeThreshold {
			for k, v := range rl.windows {
				if now.Sub(v.start) >= time.Minute {
					delete(rl.windows, k)
				}
			}
		}
		rl.windows[key] = &rateWindow{start: now, count: 1}
		return true
	}
	wdw.count++
	return wdw.count <= rl.limit
}

// requestIP identifies the client for rate limiting: first X-Forwarded-For
// hop behind a proxy, socket peer otherwise.
func requestIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// generateRequestID generates a unique request ID.
func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
