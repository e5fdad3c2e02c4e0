package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"evidence-explorer/pkg/apierror"
)

const (
	defaultUploadRPM = 30
	limiterGCSize    = 1000
	limiterIdleTTL   = 10 * time.Minute
)

type clientLimiter struct {
	general  *rate.Limiter
	upload   *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware limits requests per client IP. Upload submissions draw
// from a separate, smaller bucket; thumbnails and the event socket are exempt.
// A non-positive general limit disables limiting of ordinary requests.
type RateLimitMiddleware struct {
	generalRPM int
	uploadRPM  int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

func NewRateLimitMiddleware(generalRPM int, uploadRPM int) *RateLimitMiddleware {
	if uploadRPM <= 0 {
		uploadRPM = defaultUploadRPM
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		uploadRPM:  uploadRPM,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.ToLower(r.URL.Path)
		if strings.HasSuffix(path, "/preview/thumbnail") || strings.HasSuffix(path, "/ws") {
			next.ServeHTTP(w, r)
			return
		}

		limiter := m.getLimiter(extractClientIP(r))

		target := limiter.general
		if r.Method == http.MethodPost && strings.HasSuffix(path, "/uploads") {
			target = limiter.upload
		}

		if target != nil && !target.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(target)))
			writeJSONError(w, http.StatusTooManyRequests, apierror.CodeRateLimited, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		upload:   perMinute(m.uploadRPM),
		lastSeen: time.Now(),
	}
	if m.generalRPM > 0 {
		created.general = perMinute(m.generalRPM)
	}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

func perMinute(rpm int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

func retryAfterSeconds(l *rate.Limiter) int {
	seconds := int(time.Duration(float64(time.Second) / float64(l.Limit())).Seconds())
	return max(seconds, 1)
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.clients) < limiterGCSize {
		return
	}

	cutoff := time.Now().Add(-limiterIdleTTL)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

// extractClientIP prefers proxy headers over the socket address.
func extractClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}

// ClientIP is the address recorded in audit entries.
func ClientIP(r *http.Request) string {
	return extractClientIP(r)
}
