package httpserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	authdomain "backoffice/boilerplate/internal/domain/auth"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *responseRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func withRecover(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				writeError(w, http.StatusInternalServerError, messageInternal, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withObservability logs every request and records it in the metrics.
func withObservability(next http.Handler, logger *zap.Logger, m *metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		status := recorder.statusCode()
		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", recorder.size),
			zap.Duration("duration", duration),
			zap.String("remote_ip", clientIP(r)),
		)
	})
}

func withCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, allowedOrigins) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// ipRateLimiter throttles requests per client IP with a token bucket.
type ipRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	log      *zap.Logger
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func newIPRateLimiter(perMinute int, logger *zap.Logger) *ipRateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	l := &ipRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: perMinute,
		log:   logger,
		done:  make(chan struct{}),
	}
	go l.cleanupVisitors()
	return l
}

func (l *ipRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now()
	v, _ := l.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: now})
	vi := v.(*visitor)
	vi.mu.Lock()
	vi.lastSeen = now
	vi.mu.Unlock()
	return vi.limiter
}

func (l *ipRateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-5 * time.Minute)
			l.visitors.Range(func(k, v any) bool {
				vi := v.(*visitor)
				vi.mu.Lock()
				stale := vi.lastSeen.Before(cutoff)
				vi.mu.Unlock()
				if stale {
					l.visitors.Delete(k)
				}
				return true
			})
		}
	}
}

func (l *ipRateLimiter) stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *ipRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.getLimiter(ip).Allow() {
			l.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "too many requests, please try again later", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

type ctxKeyUser struct{}

type ctxKeyClaims struct{}

// authMiddleware admits requests whose bearer token is the access token of
// the caller's active session.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "No token found in the header.", nil)
			return
		}

		user, claims, err := s.authService.Authenticate(r.Context(), token)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser{}, user)
		ctx = context.WithValue(ctx, ctxKeyClaims{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUserFromContext(ctx context.Context) (*authdomain.User, bool) {
	user, ok := ctx.Value(ctxKeyUser{}).(*authdomain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

func claimsFromContext(ctx context.Context) (authdomain.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims{}).(authdomain.Claims)
	return claims, ok
}

// callerID identifies the caller for rate limiting: the user id when
// authenticated, the client IP otherwise.
func callerID(r *http.Request) string {
	if user, ok := currentUserFromContext(r.Context()); ok {
		return user.ID
	}
	return clientIP(r)
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
