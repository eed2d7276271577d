package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T, handler http.HandlerFunc) *HTTPExecutor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPExecutor(srv.URL, 2*time.Second)
}

func TestQueryPreservesColumnOrder(t *testing.T) {
	body := `[{"Key":"BUG-1","Summary":"login fails","Assignee":null,"Votes":3}]`
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		var req invokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Action != "query" {
			t.Errorf("expected query action, got %s", req.Action)
		}
		json.NewEncoder(w).Encode(invokeResponse{StatusCode: 200, Body: body})
	})

	rows, err := exec.Query(context.Background(), "SELECT * FROM issues")
	if err != nil {
		t.Fatalf("Query err: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	wantCols := []string{"Key", "Summary", "Assignee", "Votes"}
	gotCols := rows[0].Columns()
	if len(gotCols) != len(wantCols) {
		t.Fatalf("expected %d columns, got %d", len(wantCols), len(gotCols))
	}
	for i, col := range wantCols {
		if gotCols[i] != col {
			t.Fatalf("column %d = %s, want %s", i, gotCols[i], col)
		}
	}

	if v, _ := rows[0].Value("Assignee"); v != "null" {
		t.Fatalf("null values should render as %q, got %q", "null", v)
	}
	if v, _ := rows[0].Value("Votes"); v != "3" {
		t.Fatalf("numeric values should keep their text form, got %q", v)
	}
}

func TestQueryBackendFailureSurfacesDiagnostic(t *testing.T) {
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(invokeResponse{StatusCode: 500, Body: "table does not exist"})
	})

	_, err := exec.Query(context.Background(), "SELECT * FROM nope")
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
}

func TestQueryTransportFailure(t *testing.T) {
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := exec.Query(context.Background(), "SELECT 1")
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
}

func TestChartDataKeepsLabelOrder(t *testing.T) {
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		var req invokeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Action != "chartData" {
			t.Errorf("expected chartData action, got %s", req.Action)
		}
		json.NewEncoder(w).Encode(invokeResponse{StatusCode: 200, Body: `{"Open":12,"Closed":30,"In Progress":5}`})
	})

	points, err := exec.ChartData(context.Background(), "SELECT status, count(*) FROM issues GROUP BY status")
	if err != nil {
		t.Fatalf("ChartData err: %v", err)
	}

	wantLabels := []string{"Open", "Closed", "In Progress"}
	if len(points) != len(wantLabels) {
		t.Fatalf("expected %d points, got %d", len(wantLabels), len(points))
	}
	for i, label := range wantLabels {
		if points[i].Label != label {
			t.Fatalf("point %d label = %s, want %s", i, points[i].Label, label)
		}
	}
	if points[1].Value != 30 {
		t.Fatalf("unexpected point value: %f", points[1].Value)
	}
}
