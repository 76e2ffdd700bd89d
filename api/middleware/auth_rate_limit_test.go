package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func postLogin(email, addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = addr
	return req
}

func TestAuthRateLimitAllowsUnderLimit(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The limiter reads the body to extract the email; the handler must
		// still see the full payload.
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"ada@example.com"`) {
			t.Fatalf("body consumed by limiter: %s", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postLogin("ada@example.com", "1.2.3.4:5678"))
	if rec.Code != http.StatusOK {
		t.Fatalf("under-limit request rejected: %d", rec.Code)
	}
}

func TestAuthRateLimitEmailLimitTriggers(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for attempt := 0; attempt < 3; attempt++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postLogin("guessing@example.com", "1.2.3.4:5678"))

		if attempt < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("attempt %d rejected early: %d", attempt, rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("third attempt not limited: %d", rec.Code)
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode limited response: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("error code = %s, want %s", payload.Error.Code, pkgerrors.CodeRateLimit)
		}
	}
}

func TestAuthRateLimitIPLimitTriggers(t *testing.T) {
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postLogin("one@example.com", "5.6.7.8:1234"))
	if first.Code != http.StatusOK {
		t.Fatalf("first request rejected: %d", first.Code)
	}

	// A different email from the same address still counts against the IP.
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postLogin("two@example.com", "5.6.7.8:1234"))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request from same IP not limited: %d", second.Code)
	}
}
