package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tracelight/defectdesk/internal/model/result"
)

// ErrExecutionFailed wraps any transport or backend failure from the query
// execution service.
var ErrExecutionFailed = errors.New("query execution failed")

// Executor runs generated queries against the reader backend.
type Executor interface {
	Query(ctx context.Context, sql string) ([]result.Row, error)
	ChartData(ctx context.Context, sql string) ([]result.Point, error)
}

// HTTPExecutor talks to the query execution service over HTTP. The wire
// contract is a small invoke envelope: the request names an action and the
// query, the response carries a status code plus a JSON-encoded body string.
type HTTPExecutor struct {
	url    string
	client *http.Client
}

// NewHTTPExecutor builds an executor for the given invoke endpoint.
func NewHTTPExecutor(url string, timeout time.Duration) *HTTPExecutor {
	return &HTTPExecutor{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type invokeRequest struct {
	Action   string `json:"action"`
	SQLQuery string `json:"sqlQuery"`
}

type invokeResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Query executes sql and returns the ordered result rows.
func (e *HTTPExecutor) Query(ctx context.Context, sql string) ([]result.Row, error) {
	body, err := e.invoke(ctx, "query", sql)
	if err != nil {
		return nil, err
	}

	rows, err := parseRows(body)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed result set: %v", ErrExecutionFailed, err)
	}
	return rows, nil
}

// ChartData executes sql and returns aggregated label/value points.
func (e *HTTPExecutor) ChartData(ctx context.Context, sql string) ([]result.Point, error) {
	body, err := e.invoke(ctx, "chartData", sql)
	if err != nil {
		return nil, err
	}

	points, err := parsePoints(body)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed chart data: %v", ErrExecutionFailed, err)
	}
	return points, nil
}

func (e *HTTPExecutor) invoke(ctx context.Context, action, sql string) (string, error) {
	payload, err := json.Marshal(invokeRequest{Action: action, SQLQuery: sql})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: invoke returned status %d", ErrExecutionFailed, resp.StatusCode)
	}

	var envelope invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	if envelope.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrExecutionFailed, envelope.Body)
	}

	return envelope.Body, nil
}
