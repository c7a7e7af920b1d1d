// Package http exposes the health probes and, in webhook mode, the endpoint
// Telegram delivers updates to.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "moneytracker/internal/log"
)

const (
	WebhookPath = "/webhook"

	readyTimeout      = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// ReadyFunc reports whether a dependency is usable.
type ReadyFunc func(ctx context.Context) error

type Server struct {
	http.Server
	logger      *applog.Logger
	rateLimiter *rateLimiter
	checks      map[string]ReadyFunc
	started     time.Time

	webhookRequests int64
	shutdownOnce    sync.Once
}

// Options tunes a Server. The zero value serves only the probes.
type Options struct {
	// Webhook, when set, is mounted at WebhookPath for POST requests.
	Webhook http.Handler
	// RateLimit caps webhook requests per client IP per minute.
	RateLimit int
	// Checks are run by /readyz, keyed by name.
	Checks map[string]ReadyFunc
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, opts Options, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentHTTP)
	}
	s := &Server{
		logger:      logger,
		rateLimiter: newRateLimiter(opts.RateLimit),
		checks:      opts.Checks,
		started:     time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Webhook != nil {
		mux.Handle("POST "+WebhookPath, s.withWebhookGuard(opts.Webhook))
		go s.rateLimiter.startCleanup()
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           applog.Middleware(logger)(mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "HTTP server listening", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the rate limiter cleanup and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) withWebhookGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w.Header())
		atomic.AddInt64(&s.webhookRequests, 1)

		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", "client_ip", clientIP)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"timestamp":        time.Now().Format(time.RFC3339),
		"uptime":           time.Since(s.started).Round(time.Second).String(),
		"webhook_requests": atomic.LoadInt64(&s.webhookRequests),
		"rate_limit_hits":  atomic.LoadInt64(&s.rateLimiter.hits),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
