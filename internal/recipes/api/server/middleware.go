package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Leopold1975/recipes_control/internal/recipes/api/oapi"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/authservice"
	"github.com/Leopold1975/recipes_control/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const limiterCleanup = 5 * time.Minute

type userKey struct{}

func withUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// callerFrom returns the authenticated user. The zero User means the route is not guarded.
func callerFrom(ctx context.Context) models.User {
	u, _ := ctx.Value(userKey{}).(models.User)

	return u
}

func loggingMiddleware(logg logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			var body bytes.Buffer
			ww.Tee(&body)

			defer func() {
				latency := time.Since(start).String()

				logg.Infof("METHOD %s %s URI %s STATUS %d Latency %s Client IP %s User Agent %s Request ID %s",
					r.Method,
					r.Proto,
					r.URL.RequestURI(),
					ww.Status(),
					latency,
					r.RemoteAddr,
					r.UserAgent(),
					middleware.GetReqID(r.Context()),
				)

				if ww.Status() >= http.StatusBadRequest && body.Len() != 0 {
					logg.Errorf("error: %s", body.String())
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// authMiddleware resolves the caller of every guarded operation before its handler runs.
func authMiddleware(as AuthService, logg logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Context().Value(oapi.TokenAuthScopes) == nil {
				next.ServeHTTP(w, r)

				return
			}

			u, err := as.Authenticate(r.Context(), bearer(r.Header.Get("Authorization")))
			if err != nil {
				code := errorStatus(err)
				if code != http.StatusUnauthorized {
					logg.Errorf("authenticate error: %s", err.Error())
					handleError(w, errors.New(http.StatusText(code)), code) //nolint:goerr113

					return
				}

				handleError(w, authservice.ErrUnauthenticated, code)

				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
		})
	}
}

// bearer extracts the token from "Token <t>" or "Bearer <t>".
func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}

	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) metrics {
	m := metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct
			Name: "recipes_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{ //nolint:exhaustruct
			Name:    "recipes_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.requests, m.duration)

	return m
}

func metricsMiddleware(m metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			m.requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients map[string]*clientLimiter
	stopCh  chan struct{}
	stop    sync.Once
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	l := &ipLimiter{
		limit:   limit,
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

func (l *ipLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}

	c.lastAccess = time.Now()

	return c.limiter.Allow()
}

func (l *ipLimiter) Stop() {
	l.stop.Do(func() { close(l.stopCh) })
}

func (l *ipLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *ipLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, c := range l.clients {
		if now.Sub(c.lastAccess) > 2*limiterCleanup {
			delete(l.clients, ip)
		}
	}
}

// rateLimitMiddleware throttles POSTs to the given route patterns per client IP.
func rateLimitMiddleware(l *ipLimiter, routes ...string) func(next http.Handler) http.Handler {
	limited := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		limited[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)

				return
			}

			rc := chi.RouteContext(r.Context())
			if rc == nil {
				next.ServeHTTP(w, r)

				return
			}

			if _, ok := limited[rc.RoutePattern()]; !ok {
				next.ServeHTTP(w, r)

				return
			}

			if !l.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(l.limit)))
				handleError(w, errTooManyRequests, http.StatusTooManyRequests)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// retryAfter is the whole seconds until one token is back.
func retryAfter(limit rate.Limit) int {
	if limit <= 0 {
		return 1
	}

	sec := int(1 / float64(limit))
	if float64(sec) < 1/float64(limit) {
		sec++
	}

	if sec < 1 {
		sec = 1
	}

	return sec
}
