package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"vodworks/internal/pkg/logger"
)

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that request ID is in context
		reqID := r.Context().Value(logger.RequestIDKey)
		if reqID == nil || reqID == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates new request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		reqID := rec.Header().Get(RequestIDHeader)
		if reqID == "" {
			t.Error("expected X-Request-ID header to be set")
		}
		if len(reqID) != 32 { // hex encoded 16 bytes
			t.Errorf("expected request ID length 32, got %d", len(reqID))
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-id-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		reqID := rec.Header().Get(RequestIDHeader)
		if reqID != "existing-id-123" {
			t.Errorf("expected preserved request ID 'existing-id-123', got %s", reqID)
		}
	})
}

func TestLogging(t *testing.T) {
	var logBuf bytes.Buffer
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "json",
		Output: &logBuf,
	})

	handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	logOutput := logBuf.String()

	// Should contain request completed log
	if !strings.Contains(logOutput, "request completed") {
		t.Errorf("expected 'request completed' in log, got: %s", logOutput)
	}

	// Should contain method
	if !strings.Contains(logOutput, "GET") {
		t.Errorf("expected method in log, got: %s", logOutput)
	}

	// Should contain path
	if !strings.Contains(logOutput, "/test") {
		t.Errorf("expected path in log, got: %s", logOutput)
	}

	// Should contain status
	if !strings.Contains(logOutput, "200") {
		t.Errorf("expected status in log, got: %s", logOutput)
	}

	// Should contain duration_ms
	if !strings.Contains(logOutput, "duration_ms") {
		t.Errorf("expected duration_ms in log, got: %s", logOutput)
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		expectedLevel string
	}{
		{"2xx logs info", 200, "INFO"},
		{"3xx logs info", 302, "INFO"},
		{"4xx logs warn", 404, "WARN"},
		{"5xx logs error", 500, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			log := logger.New(logger.Config{
				Level:  "debug",
				Format: "json",
				Output: &logBuf,
			})

			handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			logOutput := logBuf.String()
			if !strings.Contains(logOutput, tt.expectedLevel) {
				t.Errorf("expected log level %s, got: %s", tt.expectedLevel, logOutput)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var logBuf bytes.Buffer
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "json",
		Output: &logBuf,
	})

	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	// Should not panic
	handler.ServeHTTP(rec, req)

	// Should return 500
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	// Should return JSON error
	body := rec.Body.String()
	if !strings.Contains(body, "INTERNAL_ERROR") {
		t.Errorf("expected INTERNAL_ERROR in body, got: %s", body)
	}

	// Should log the panic
	logOutput := logBuf.String()
	if !strings.Contains(logOutput, "panic recovered") {
		t.Errorf("expected 'panic recovered' in log, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "test panic") {
		t.Errorf("expected panic message in log, got: %s", logOutput)
	}
}

func TestResponseWriter(t *testing.T) {
	t.Run("captures status code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := wrapResponseWriter(rec)

		rw.WriteHeader(http.StatusCreated)

		if rw.status != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rw.status)
		}
	})

	t.Run("captures size", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := wrapResponseWriter(rec)

		rw.Write([]byte("hello world"))

		if rw.size != 11 {
			t.Errorf("expected size 11, got %d", rw.size)
		}
	})

	t.Run("defaults to 200", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := wrapResponseWriter(rec)

		rw.Write([]byte("hello"))

		if rw.status != http.StatusOK {
			t.Errorf("expected default status 200, got %d", rw.status)
		}
	})

	t.Run("only writes header once", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := wrapResponseWriter(rec)

		rw.WriteHeader(http.StatusCreated)
		rw.WriteHeader(http.StatusOK) // Should be ignored

		if rw.status != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rw.status)
		}
	})
}

type latencySample struct {
	route      string
	method     string
	status     string
	concurrent int32
}

type fakeLatencySink struct {
	mu      sync.Mutex
	samples []latencySample
	err     error
}

func (f *fakeLatencySink) RecordAPILatency(_ context.Context, _ *string, route, method, status string, _ int64, concurrent *int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c int32
	if concurrent != nil {
		c = *concurrent
	}
	f.samples = append(f.samples, latencySample{route: route, method: method, status: status, concurrent: c})
	return f.err
}

func TestAPIMetrics(t *testing.T) {
	t.Run("records route pattern and status", func(t *testing.T) {
		sink := &fakeLatencySink{}
		log := logger.New(logger.Config{Level: "info", Format: "json", Output: io.Discard})

		r := chi.NewRouter()
		r.Use(APIMetrics(sink, log))
		r.Get("/videos/{videoId}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		req := httptest.NewRequest("GET", "/videos/abc-123", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if len(sink.samples) != 1 {
			t.Fatalf("expected 1 sample, got %d", len(sink.samples))
		}
		s := sink.samples[0]
		if s.route != "/videos/{videoId}" {
			t.Errorf("expected route pattern, got %q", s.route)
		}
		if s.method != "GET" {
			t.Errorf("expected method GET, got %q", s.method)
		}
		if s.status != "404" {
			t.Errorf("expected status 404, got %q", s.status)
		}
		if s.concurrent < 1 {
			t.Errorf("expected concurrent >= 1, got %d", s.concurrent)
		}
	})

	t.Run("sink failure does not affect the response", func(t *testing.T) {
		sink := &fakeLatencySink{err: errors.New("db down")}
		var logBuf bytes.Buffer
		log := logger.New(logger.Config{Level: "info", Format: "json", Output: &logBuf})

		handler := APIMetrics(sink, log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 despite sink failure, got %d", rec.Code)
		}
		if !strings.Contains(logBuf.String(), "api latency record failed") {
			t.Errorf("expected warn log, got: %s", logBuf.String())
		}
	})
}

func TestRateLimit(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allows until the limit then rejects", func(t *testing.T) {
		handler := RateLimit(3)(okHandler)

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = "10.0.0.1:5000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
			}
		}

		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after limit, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") != "60" {
			t.Errorf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
		}
		if !strings.Contains(rec.Body.String(), "RATE_LIMITED") {
			t.Errorf("expected RATE_LIMITED in body, got: %s", rec.Body.String())
		}
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		handler := RateLimit(1)(okHandler)

		for _, addr := range []string{"10.0.0.1:1111", "10.0.0.2:2222"} {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", addr, rec.Code)
			}
		}
	})

	t.Run("x-forwarded-for identifies the client", func(t *testing.T) {
		handler := RateLimit(1)(okHandler)

		// Same forwarded client from two different peers still shares
		// one window.
		for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = fmt.Sprintf("10.0.0.%d:1000", i+1)
			req.Header.Set("X-Forwarded-For", "203.0.113.9, 70.1.1.1")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != want {
				t.Errorf("request %d: expected %d, got %d", i+1, want, rec.Code)
			}
		}
	})

	t.Run("zero limit disables", func(t *testing.T) {
		handler := RateLimit(0)(okHandler)
		for i := 0; i < 50; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = "10.0.0.1:5000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200 with limit 0, got %d", rec.Code)
			}
		}
	})
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := &rateLimiter{limit: 2, windows: make(map[string]*rateWindow)}
	now := time.Now()

	if !rl.allow("a", now) || !rl.allow("a", now) {
		t.Fatal("expected first two requests to pass")
	}
	if rl.allow("a", now) {
		t.Fatal("expected third request in the window to be rejected")
	}
	if !rl.allow("a", now.Add(time.Minute)) {
		t.Fatal("expected request in the next window to pass")
	}
}

func TestRequestIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		expected   string
	}{
		{"socket peer", "10.0.0.1:5000", "", "10.0.0.1"},
		{"socket peer without port", "10.0.0.1", "", "10.0.0.1"},
		{"single forwarded hop", "10.0.0.1:5000", "203.0.113.9", "203.0.113.9"},
		{"first of multiple hops", "10.0.0.1:5000", "203.0.113.9, 70.1.1.1, 10.0.0.1", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := requestIP(req); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestGenerateRequestID(t *testing.T) {
	id1 := generateRequestID()
	id2 := generateRequestID()

	if id1 == id2 {
		t.Error("expected unique request IDs")
	}

	if len(id1) != 32 {
		t.Errorf("expected length 32, got %d", len(id1))
	}
}
