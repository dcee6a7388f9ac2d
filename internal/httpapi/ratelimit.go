package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"qvuew/internal/clock"
)

type RateLimitConfig struct {
	IPPerMinute       int
	IPBurst           int
	BusinessPerMinute int
	BusinessBurst     int
	Clock             clock.Clock
}

// RateLimiter throttles callers per client IP and per business.
type RateLimiter struct {
	byIP       *tokenLimiter
	byBusiness *tokenLimiter
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	c := cfg.Clock
	if c == nil {
		c = clock.Real{}
	}
	return &RateLimiter{
		byIP:       newTokenLimiter(cfg.IPPerMinute, cfg.IPBurst, c),
		byBusiness: newTokenLimiter(cfg.BusinessPerMinute, cfg.BusinessBurst, c),
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip != "" && !l.byIP.allow(ip) {
			writeError(w, "", http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		businessID, requestID := businessAndRequestID(r)
		if businessID != "" && !l.byBusiness.allow(businessID) {
			writeError(w, requestID, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type tokenLimiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	clock   clock.Clock
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newTokenLimiter(perMinute, burst int, c clock.Clock) *tokenLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}
	return &tokenLimiter{
		rate:    float64(perMinute) / 60.0,
		burst:   float64(burst),
		clock:   c,
		buckets: make(map[string]*bucket),
	}
}

func (l *tokenLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}
	refill := now.Sub(b.last).Seconds() * l.rate
	if b.tokens+refill < l.burst {
		b.tokens += refill
	} else {
		b.tokens = l.burst
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// businessAndRequestID looks at headers, then the query string, then a
// JSON body. The body is restored so handlers can decode it again.
func businessAndRequestID(r *http.Request) (string, string) {
	businessID := strings.TrimSpace(r.Header.Get("X-Business-ID"))
	requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	query := r.URL.Query()
	if businessID == "" {
		businessID = strings.TrimSpace(query.Get("business_id"))
	}
	if requestID == "" {
		requestID = strings.TrimSpace(query.Get("request_id"))
	}
	if businessID != "" || r.Body == nil {
		return businessID, requestID
	}
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return businessID, requestID
	}

	body, err := readBody(r)
	if err != nil {
		return businessID, requestID
	}
	var payload struct {
		BusinessID string `json:"business_id"`
		RequestID  string `json:"request_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return businessID, requestID
	}
	if requestID == "" {
		requestID = strings.TrimSpace(payload.RequestID)
	}
	return strings.TrimSpace(payload.BusinessID), requestID
}

const maxPeekBytes = 1 << 20

var errBodyTooLarge = errors.New("body too large to inspect")

// readBody buffers the body for inspection and puts it back for handlers.
// Bodies past maxPeekBytes are restored in full but not inspected.
func readBody(r *http.Request) ([]byte, error) {
	orig := r.Body
	body, err := io.ReadAll(io.LimitReader(orig, maxPeekBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxPeekBytes {
		r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), orig), Closer: orig}
		return nil, errBodyTooLarge
	}
	_ = orig.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
