package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Moqi/ganalytics/internal/analytics"
	"github.com/Moqi/ganalytics/internal/models"
	"github.com/Moqi/ganalytics/internal/store"
	"github.com/Moqi/ganalytics/internal/transport"
)

type countingSender struct {
	mu   sync.Mutex
	sent int
}

func (s *countingSender) Send(ctx context.Context, rawURL string) transport.Result {
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return transport.Result{Succeeded: true, FinalURL: rawURL}
}

func (s *countingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func newTestServer(t *testing.T) (*Server, *countingSender) {
	t.Helper()
	sender := &countingSender{}
	svc, err := analytics.New(store.NewInMemoryStore(),
		analytics.WithAccount("UA-1-1"),
		analytics.WithDomain("example.com"),
		analytics.WithSender(sender))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewServer(svc, ""), sender
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestTrackViewHandler(t *testing.T) {
	s, sender := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/track/view", strings.NewReader(`{"page":"Main Menu"}`))
	rec := httptest.NewRecorder()
	s.trackViewHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Status != string(models.APIStatusRecorded) {
		t.Errorf("response status = %q, want recorded", resp.Status)
	}
	deadline := time.Now().Add(time.Second)
	for sender.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sender.count() != 1 {
		t.Errorf("sends = %d, want 1", sender.count())
	}
}

func TestTrackViewHandlerRejectsMissingPage(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/track/view", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.trackViewHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTrackViewHandlerMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/track/view", nil)
	rec := httptest.NewRecorder()
	s.trackViewHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestTrackEventHandlerValidation(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/track/event", strings.NewReader(`{"page":"P","action":"click"}`))
	rec := httptest.NewRecorder()
	s.trackEventHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeResponse(t, rec); !strings.Contains(resp.Message, "category") {
		t.Errorf("message = %q, want category complaint", resp.Message)
	}
}

func TestTrackEventHandlerAcceptsEvent(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"page":"Level 1","category":"gameplay","action":"death","label":"lava","value":3}`
	req := httptest.NewRequest(http.MethodPost, "/track/event", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.trackEventHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPurgeHandler(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/purge", nil)
	rec := httptest.NewRecorder()
	s.purgeHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Status != string(models.APIStatusOK) {
		t.Errorf("response status = %q, want ok", resp.Status)
	}
}

func TestStatusHandler(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.statusHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("response status = %q, want ok", resp.Status)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result is not an object: %T", resp.Result)
	}
	if _, ok := result["queue_length"]; !ok {
		t.Error("status result missing queue_length")
	}
}
