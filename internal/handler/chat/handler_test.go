package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tracelight/defectdesk/internal/model/result"
	"github.com/tracelight/defectdesk/internal/service/chartgen"
	"github.com/tracelight/defectdesk/internal/service/export"
	"github.com/tracelight/defectdesk/internal/service/orchestrator"
	"github.com/tracelight/defectdesk/internal/service/ratelimit"
	"github.com/tracelight/defectdesk/internal/service/session"
)

type stubInvoker struct {
	answer string
}

func (s *stubInvoker) Invoke(_ context.Context, _, _ string) (string, error) {
	return s.answer, nil
}

type stubExecutor struct{}

func (stubExecutor) Query(_ context.Context, _ string) ([]result.Row, error) {
	return []result.Row{{{Column: "Key", Value: "BUG-1"}}}, nil
}

func (stubExecutor) ChartData(_ context.Context, _ string) ([]result.Point, error) {
	return []result.Point{{Label: "Open", Value: 1}}, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(_ []result.Point, _ chartgen.Kind) (string, error) {
	return "chart_output_1.png", nil
}

func setupRouter() *chi.Mux {
	orch := orchestrator.New(
		session.NewStore(),
		ratelimit.NewLimiter(30, time.Minute),
		export.NewStore(),
		&stubInvoker{answer: "SELECT * FROM issues"},
		&stubInvoker{answer: "Matching Defect\n..."},
		stubExecutor{},
		stubRenderer{},
		orchestrator.Options{},
	)
	handler := New(orch)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postChat(t *testing.T, r http.Handler, body map[string]any, header string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set("X-Session-ID", header)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatReturnsResponsePayload(t *testing.T) {
	r := setupRouter()

	resp := postChat(t, r, map[string]any{"message": "how many bugs", "sessionId": "s1"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body orchestrator.Response
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.SessionID != "s1" {
		t.Fatalf("expected session s1, got %q", body.SessionID)
	}
	if body.Type != orchestrator.TypeText {
		t.Fatalf("expected text type, got %q", body.Type)
	}
}

func TestChatHeaderSessionWinsOverBody(t *testing.T) {
	r := setupRouter()

	resp := postChat(t, r, map[string]any{"message": "how many bugs", "sessionId": "body-session"}, "header-session")

	var body orchestrator.Response
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.SessionID != "header-session" {
		t.Fatalf("header session id should win, got %q", body.SessionID)
	}
}

func TestChatEmptyMessageRejected(t *testing.T) {
	r := setupRouter()

	resp := postChat(t, r, map[string]any{"message": "  ", "sessionId": "s1"}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatMalformedBodyRejected(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHistoryAfterChat(t *testing.T) {
	r := setupRouter()
	postChat(t, r, map[string]any{"message": "how many bugs", "sessionId": "s1"}, "")

	req := httptest.NewRequest(http.MethodGet, "/session/s1/history", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var messages []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0]["sender"] != "user" || messages[1]["sender"] != "bot" {
		t.Fatalf("unexpected sender order: %v", messages)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/session/ghost/history", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeleteSessionConfirms(t *testing.T) {
	r := setupRouter()
	postChat(t, r, map[string]any{"message": "how many bugs", "sessionId": "s1"}, "")

	req := httptest.NewRequest(http.MethodDelete, "/session/s1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["message"] != "Session cleared successfully" || body["sessionId"] != "s1" {
		t.Fatalf("unexpected confirmation: %v", body)
	}

	histReq := httptest.NewRequest(http.MethodGet, "/session/s1/history", nil)
	histResp := httptest.NewRecorder()
	r.ServeHTTP(histResp, histReq)
	if histResp.Code != http.StatusNotFound {
		t.Fatalf("history should be gone after delete, got %d", histResp.Code)
	}
}

func TestHealthReportsActiveSessions(t *testing.T) {
	r := setupRouter()
	postChat(t, r, map[string]any{"message": "how many bugs", "sessionId": "s1"}, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected status: %v", body["status"])
	}
	if body["activeSessions"].(float64) != 1 {
		t.Fatalf("expected 1 active session, got %v", body["activeSessions"])
	}
}
