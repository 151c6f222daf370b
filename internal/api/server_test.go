package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"askrelay/pkg/interfaces"
	"askrelay/pkg/types"
)

// Mock SessionRuntime for testing
type mockRuntime struct {
	pending   []types.PendingSessionView
	submitErr error
	submitted []*types.SubmitPayload
}

func (m *mockRuntime) ListPending() []types.PendingSessionView {
	return m.pending
}

func (m *mockRuntime) Submit(ctx context.Context, payload *types.SubmitPayload) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, payload)
	return nil
}

// Mock ResolutionLog for testing
type mockHistory struct {
	records   []*types.ResolutionRecord
	listErr   error
	healthErr error
	lastLimit int
}

func (m *mockHistory) RecordResolution(ctx context.Context, record *types.ResolutionRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *mockHistory) ListResolutions(ctx context.Context, limit int) ([]*types.ResolutionRecord, error) {
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockHistory) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

func (m *mockHistory) Close() error {
	return nil
}

type mockStats struct {
	connections int
}

func (m *mockStats) GetStats() map[string]int {
	return map[string]int{"ui_connections": m.connections}
}

func newTestServer(runtime *mockRuntime, history *mockHistory) *Server {
	return NewServer(runtime, history, &mockStats{})
}

func TestHandleAsks_List(t *testing.T) {
	runtime := &mockRuntime{
		pending: []types.PendingSessionView{
			{AskID: "ask-1", RequestedAtISO: "2026-08-28T10:00:00Z"},
			{AskID: "ask-2", RequestedAtISO: "2026-08-28T10:01:00Z", IsExpired: true},
		},
	}
	server := newTestServer(runtime, &mockHistory{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/asks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var response ListAsksResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(response.Asks) != 2 || response.Asks[0].AskID != "ask-1" {
		t.Errorf("unexpected listing: %+v", response.Asks)
	}
	if !response.Asks[1].IsExpired {
		t.Error("expired flag was dropped from the listing")
	}
}

func TestHandleAsks_MethodNotAllowed(t *testing.T) {
	server := newTestServer(&mockRuntime{}, &mockHistory{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/asks", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func submitRequest(askID string, payload *types.SubmitPayload) *http.Request {
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("/api/asks/%s/response", askID)
	return httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
}

func TestSubmitResponse_Success(t *testing.T) {
	runtime := &mockRuntime{}
	server := newTestServer(runtime, &mockHistory{})

	index := 0
	payload := &types.SubmitPayload{
		Answers: []types.AskAnswer{{ID: "q1", SelectedIndex: &index}},
		Status:  types.StatusAnswered,
	}

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, submitRequest("ask-1", payload))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(runtime.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(runtime.submitted))
	}
	// The URL supplies the ask id when the body omits it
	if runtime.submitted[0].AskID != "ask-1" {
		t.Errorf("expected ask id from URL, got %s", runtime.submitted[0].AskID)
	}
}

func TestSubmitResponse_AskIDMismatch(t *testing.T) {
	runtime := &mockRuntime{}
	server := newTestServer(runtime, &mockHistory{})

	payload := &types.SubmitPayload{AskID: "ask-other", Status: types.StatusCancelled}

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, submitRequest("ask-1", payload))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if len(runtime.submitted) != 0 {
		t.Error("mismatched submission should never reach the runtime")
	}
}

func TestSubmitResponse_InvalidJSON(t *testing.T) {
	server := newTestServer(&mockRuntime{}, &mockHistory{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/asks/ask-1/response", bytes.NewReader([]byte("{not json")))
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitResponse_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not found", fmt.Errorf("%w: ask-1", interfaces.ErrSessionNotFound), http.StatusNotFound},
		{"expired", fmt.Errorf("%w: ask-1", interfaces.ErrSessionExpired), http.StatusNotFound},
		{"validation", errors.New("answer is missing for question id: q2"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(&mockRuntime{submitErr: tt.err}, &mockHistory{})

			payload := &types.SubmitPayload{Status: types.StatusAnswered}
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, submitRequest("ask-1", payload))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var response ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Fatalf("invalid error JSON: %v", err)
			}
			if response.Message != tt.err.Error() {
				t.Errorf("expected the error text to pass through, got %q", response.Message)
			}
		})
	}
}

func TestHandleAskByID_BadPath(t *testing.T) {
	server := newTestServer(&mockRuntime{}, &mockHistory{})

	for _, path := range []string{"/api/asks/ask-1", "/api/asks//response", "/api/asks/ask-1/other"} {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte("{}"))))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestHandleResolutions(t *testing.T) {
	note := "done"
	history := &mockHistory{
		records: []*types.ResolutionRecord{
			{ID: "res-1", AskID: "ask-1", Status: types.StatusAnswered, Note: &note},
		},
	}
	server := newTestServer(&mockRuntime{}, history)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resolutions?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if history.lastLimit != 5 {
		t.Errorf("expected limit 5 to reach the log, got %d", history.lastLimit)
	}

	var response ListResolutionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(response.Resolutions) != 1 || response.Resolutions[0].AskID != "ask-1" {
		t.Errorf("unexpected history: %+v", response.Resolutions)
	}
}

func TestHandleResolutions_BadLimit(t *testing.T) {
	server := newTestServer(&mockRuntime{}, &mockHistory{})

	for _, raw := range []string{"zero", "-1", "0"} {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resolutions?limit="+raw, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", raw, rec.Code)
		}
	}
}

func TestHandleResolutions_EmptyHistory(t *testing.T) {
	server := newTestServer(&mockRuntime{}, &mockHistory{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resolutions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	// Empty history serializes as [] rather than null
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"resolutions":[]`)) {
		t.Errorf("expected an empty array, got %s", rec.Body.String())
	}
}

func TestHandleResolutions_ListFailure(t *testing.T) {
	server := newTestServer(&mockRuntime{}, &mockHistory{listErr: errors.New("database is locked")})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resolutions", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	server := NewServer(&mockRuntime{}, &mockHistory{}, &mockStats{connections: 2})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if response.Status != "healthy" || response.Database != "healthy" {
		t.Errorf("unexpected health report: %+v", response)
	}
	if response.Connections["ui_connections"] != 2 {
		t.Errorf("expected 2 UI connections, got %d", response.Connections["ui_connections"])
	}
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	server := newTestServer(&mockRuntime{}, &mockHistory{healthErr: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if response.Status != "unhealthy" {
		t.Errorf("expected unhealthy status, got %s", response.Status)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(&mockRuntime{}, &mockHistory{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/asks", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected wildcard origin, got %q", origin)
	}
}
