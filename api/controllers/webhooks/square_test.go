package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	squarewebhook "github.com/velora-co/velora-backend/internal/webhooks/square"
)

func TestSquareWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.updated", "COMPLETED")
	header := buildSquareSignature(payload, "secret")
	service := &fakeSquareWebhookService{}
	guard := newGuard(t)
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	req2.Header.Set("Square-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec2.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestSquareWebhook_InvalidSignature(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.updated", "COMPLETED")
	service := &fakeSquareWebhookService{}
	guard := newGuard(t)
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", "invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestSquareWebhook_MissingSignature(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.created", "PENDING")
	service := &fakeSquareWebhookService{}
	guard := newGuard(t)
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
}

func TestSquareWebhook_ServiceFailureUnmarksEvent(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.updated", "COMPLETED")
	header := buildSquareSignature(payload, "secret")
	service := &fakeSquareWebhookService{err: fmt.Errorf("transient failure")}
	guard := newGuard(t)
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Fatalf("expected failure status, got 200")
	}

	// The event should be retryable after a failure.
	service.err = nil
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	req2.Header.Set("Square-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 2 {
		t.Fatalf("expected two processing attempts, got %d", service.calls)
	}
}

func newGuard(t *testing.T) *squarewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := squarewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "square-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func buildPaymentEvent(t *testing.T, eventType, status string) []byte {
	t.Helper()
	event := &squarewebhook.Event{
		MerchantID: "merchant-1",
		EventID:    "evt_" + uuid.NewString(),
		Type:       eventType,
		Data: squarewebhook.EventData{
			Type: "payment",
			ID:   "pay_" + uuid.NewString(),
			Object: squarewebhook.EventObject{
				Payment: &squarewebhook.PaymentObject{
					ID:          "pay_" + uuid.NewString(),
					Status:      status,
					ReferenceID: "VL-20260827-TEST01",
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func buildSquareSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type fakeSquareWebhookService struct {
	calls int
	err   error
}

func (f *fakeSquareWebhookService) HandleEvent(ctx context.Context, event *squarewebhook.Event) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("vl:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
