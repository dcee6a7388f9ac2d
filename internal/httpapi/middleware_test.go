package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qvuew/internal/clock"

	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestStaffPINMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("2468"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	guarded := StaffPINMiddleware(string(hash), okHandler())

	cases := []struct {
		name   string
		method string
		path   string
		pin    string
		want   int
	}{
		{"read is public", http.MethodGet, "/api/queue", "", http.StatusOK},
		{"missing pin", http.MethodPost, "/api/queue/actions/advance", "", http.StatusUnauthorized},
		{"wrong pin", http.MethodPost, "/api/queue/actions/advance", "1111", http.StatusUnauthorized},
		{"right pin", http.MethodPost, "/api/queue/actions/advance", "2468", http.StatusOK},
		{"outside api", http.MethodPost, "/realtime/info", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.pin != "" {
				req.Header.Set(staffPINHeader, tc.pin)
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestStaffPINDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	StaffPINMiddleware("", okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/break/start", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	c := clock.NewFake(time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC))
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 60, IPBurst: 1, BusinessPerMinute: 600, BusinessBurst: 100, Clock: c})
	handler := limiter.Middleware(okHandler())

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	if got := send(); got != http.StatusOK {
		t.Fatalf("first request got %d", got)
	}
	if got := send(); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", got)
	}
	c.Advance(time.Second)
	if got := send(); got != http.StatusOK {
		t.Fatalf("expected refill after a second, got %d", got)
	}
}

func TestRateLimiterPerBusinessKeepsBody(t *testing.T) {
	c := clock.NewFake(time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC))
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, BusinessPerMinute: 60, BusinessBurst: 1, Clock: c})
	var seen string
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		_ = json.Unmarshal(body, &payload)
		seen = payload["business_id"]
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/queue/actions/advance", bytes.NewBufferString(`{"business_id":"`+testBusinessID+`","request_id":"r-9"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}
	if rec := send("10.0.0.1:1"); rec.Code != http.StatusOK || seen != testBusinessID {
		t.Fatalf("first request code=%d seen=%q", rec.Code, seen)
	}
	rec := send("10.0.0.2:1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected business limit across IPs, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.RequestID != "r-9" {
		t.Fatalf("expected request id echoed, got %+v", resp)
	}
}

func TestLoggingMiddlewareCountsErrors(t *testing.T) {
	beforeTotal := requestsTotal.Value()
	beforeErrors := requestsErrors.Value()
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	if requestsTotal.Value() != beforeTotal+1 || requestsErrors.Value() != beforeErrors+1 {
		t.Fatalf("expected counters to advance")
	}
}

func TestRateLimiterKeepsLargeBodyIntact(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, BusinessPerMinute: 600, BusinessBurst: 100})
	payload := `{"business_id":"` + testBusinessID + `","notes":"` + string(bytes.Repeat([]byte("x"), maxPeekBytes+512)) + `"}`
	var got int
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = len(body)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/queue/customers", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || got != len(payload) {
		t.Fatalf("expected full body of %d bytes, got %d (status %d)", len(payload), got, rec.Code)
	}
}
