package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{
		data: map[string]string{},
		ttls: map[string]time.Duration{},
	}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryIdempotencyStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "mc:idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "middleware-test", Output: io.Discard})
}

func idempotentHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(idempotentHandler(&calls))

	body := `{"listingId":"abc","quantity":2}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/cart/11111111-1111-1111-1111-111111111111/items", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "key-1")
	firstRec := httptest.NewRecorder()
	handler.ServeHTTP(firstRec, first)

	require.Equal(t, http.StatusCreated, firstRec.Code)
	require.Equal(t, 1, calls)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/cart/11111111-1111-1111-1111-111111111111/items", strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "key-1")
	secondRec := httptest.NewRecorder()
	handler.ServeHTTP(secondRec, second)

	require.Equal(t, http.StatusCreated, secondRec.Code)
	require.Equal(t, firstRec.Body.String(), secondRec.Body.String())
	require.Equal(t, "application/json", secondRec.Header().Get("Content-Type"))
	require.Equal(t, 1, calls, "handler must not run again on replay")
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(idempotentHandler(&calls))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/cart/11111111-1111-1111-1111-111111111111/items", strings.NewReader(`{"quantity":1}`))
	first.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/cart/11111111-1111-1111-1111-111111111111/items", strings.NewReader(`{"quantity":5}`))
	second.Header.Set("Idempotency-Key", "key-1")
	secondRec := httptest.NewRecorder()
	handler.ServeHTTP(secondRec, second)

	require.Equal(t, http.StatusConflict, secondRec.Code)
	require.Equal(t, 1, calls)
}

func TestIdempotencyRequiresHeaderOnGuardedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(idempotentHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/11111111-1111-1111-1111-111111111111", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, calls)
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(idempotentHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, calls)
}

func TestIdempotencyUsesLongerTTLForCheckout(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(idempotentHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/11111111-1111-1111-1111-111111111111", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "checkout-key")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.ttls, 1)
	for _, ttl := range store.ttls {
		require.Equal(t, criticalIdempotencyTTL, ttl)
	}
}

func TestIdempotencyScopeSeparatesOwners(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, testLogger())(idempotentHandler(&calls))

	body := `{"quantity":1}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/cart/11111111-1111-1111-1111-111111111111/items", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "shared-key")
	first = first.WithContext(WithSessionID(first.Context(), "guest-a"))
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/cart/11111111-1111-1111-1111-111111111111/items", strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "shared-key")
	second = second.WithContext(WithSessionID(second.Context(), "guest-b"))
	handler.ServeHTTP(httptest.NewRecorder(), second)

	require.Equal(t, 2, calls, "different owners must not share idempotency records")
}
