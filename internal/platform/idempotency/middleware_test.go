package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cardify/api/internal/platform/auth"
)

var fixedTime = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func postRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/me/feedback", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
}

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]int32{"call": n})
	})
}

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store, _ := newTestStore(t)
	var calls int32
	handler := Middleware(store)(countingHandler(&calls, http.StatusCreated))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, postRequest("", `{}`))
		if rr.Code != http.StatusCreated {
			t.Fatalf("unexpected status %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected both requests to run, got %d", calls)
	}
}

func TestMiddlewareRequiredKey(t *testing.T) {
	store, _ := newTestStore(t)
	var calls int32
	handler := Middleware(store, WithRequired(true))(countingHandler(&calls, http.StatusCreated))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, postRequest("", `{}`))
	if rr.Code != http.StatusBadRequest || calls != 0 {
		t.Fatalf("expected 400 without handler call, got %d (%d calls)", rr.Code, calls)
	}
	assertErrorCode(t, rr.Body.Bytes(), "idempotency_key_required")
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	store, _ := newTestStore(t)
	var calls int32
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(countingHandler(&calls, http.StatusCreated))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, postRequest("abc-123", `{"rating":"happy"}`))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, postRequest("abc-123", `{"rating":"happy"}`))

	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", rr2.Code)
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatalf("expected replay header")
	}
	if !bytes.Equal(rr1.Body.Bytes(), rr2.Body.Bytes()) {
		t.Fatalf("expected identical bodies, got %q and %q", rr1.Body.String(), rr2.Body.String())
	}
}

func TestMiddlewareRejectsReusedKeyWithDifferentBody(t *testing.T) {
	store, _ := newTestStore(t)
	var calls int32
	handler := Middleware(store)(countingHandler(&calls, http.StatusCreated))

	handler.ServeHTTP(httptest.NewRecorder(), postRequest("abc-123", `{"rating":"happy"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, postRequest("abc-123", `{"rating":"angry"}`))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	assertErrorCode(t, rr.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddlewareReleasesOnServerError(t *testing.T) {
	store, _ := newTestStore(t)
	var calls int32
	handler := Middleware(store)(countingHandler(&calls, http.StatusBadGateway))

	handler.ServeHTTP(httptest.NewRecorder(), postRequest("retry-me", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), postRequest("retry-me", `{}`))
	if calls != 2 {
		t.Fatalf("expected retry to run the handler again, got %d calls", calls)
	}
}

func TestRedisStorePendingAndExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	res, err := store.Reserve(ctx, "k", "fp", fixedTime, time.Minute)
	if err != nil || res.State != ReservationStateNew {
		t.Fatalf("expected new reservation, got %+v (%v)", res, err)
	}
	res, err = store.Reserve(ctx, "k", "fp", fixedTime, time.Minute)
	if err != nil || res.State != ReservationStatePending {
		t.Fatalf("expected pending reservation, got %+v (%v)", res, err)
	}
	if _, err := store.Reserve(ctx, "k", "other", fixedTime, time.Minute); !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("expected fingerprint mismatch, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	res, err = store.Reserve(ctx, "k", "other", fixedTime, time.Minute)
	if err != nil || res.State != ReservationStateNew {
		t.Fatalf("expected fresh reservation after expiry, got %+v (%v)", res, err)
	}
}

func TestRedisStoreSaveResponseOmitsHopHeaders(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Reserve(ctx, "k", "fp", fixedTime, time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	header := http.Header{"Content-Type": {"application/json"}, "Content-Length": {"12"}}
	if err := store.SaveResponse(ctx, "k", "fp", Response{Status: 201, Headers: header, Body: []byte(`{}`)}, fixedTime, time.Minute); err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}
	res, err := store.Reserve(ctx, "k", "fp", fixedTime, time.Minute)
	if err != nil || res.State != ReservationStateCompleted {
		t.Fatalf("expected completed reservation, got %+v (%v)", res, err)
	}
	if _, ok := res.Record.ResponseHeaders["Content-Length"]; ok {
		t.Fatalf("content-length should not be stored")
	}
	if res.Record.ResponseStatus != 201 {
		t.Fatalf("unexpected stored status %d", res.Record.ResponseStatus)
	}
}

func assertErrorCode(t *testing.T, body []byte, code string) {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] != code {
		t.Fatalf("expected error %q, got %v", code, payload["error"])
	}
}
