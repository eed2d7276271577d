package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tracelight/defectdesk/internal/analysis/intent"
	"github.com/tracelight/defectdesk/internal/model/chat"
	"github.com/tracelight/defectdesk/internal/service/agent"
	"github.com/tracelight/defectdesk/internal/service/chartgen"
	"github.com/tracelight/defectdesk/internal/service/export"
	"github.com/tracelight/defectdesk/internal/service/query"
	"github.com/tracelight/defectdesk/internal/service/ratelimit"
	"github.com/tracelight/defectdesk/internal/service/session"
)

// Response is the payload returned for every chat turn.
type Response struct {
	Response    string `json:"response"`
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	ChartURL    string `json:"chartUrl,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// Response type tags.
const (
	TypeText    = "text"
	TypeChart   = "chart"
	TypeSummary = "summary"
	TypeDefect  = "defect_recommendation"
	TypeError   = "error"
)

// Invoker is the streaming agent surface the orchestrator depends on.
type Invoker interface {
	Invoke(ctx context.Context, prompt, sessionID string) (string, error)
}

// Options carries tunables with sensible defaults.
type Options struct {
	SessionIdleTimeout time.Duration
	SweepSpec          string
}

func (o *Options) withDefaults() {
	if o.SessionIdleTimeout == 0 {
		o.SessionIdleTimeout = 30 * time.Minute
	}
	if o.SweepSpec == "" {
		o.SweepSpec = "@every 30m"
	}
}

// Orchestrator composes the request cycle: admission, session bookkeeping,
// intent routing, agent invocation, query execution and presentation. It also
// owns the background sweep that reaps idle sessions, empty rate windows and
// expired bundles.
type Orchestrator struct {
	sessions    *session.Store
	limiter     *ratelimit.Limiter
	bundles     *export.Store
	queryAgent  Invoker
	defectAgent Invoker
	executor    query.Executor
	charts      chartgen.Renderer
	opts        Options
	cron        *cron.Cron
}

// New wires an orchestrator from its collaborators.
func New(sessions *session.Store, limiter *ratelimit.Limiter, bundles *export.Store,
	queryAgent, defectAgent Invoker, executor query.Executor, charts chartgen.Renderer, opts Options) *Orchestrator {
	opts.withDefaults()
	return &Orchestrator{
		sessions:    sessions,
		limiter:     limiter,
		bundles:     bundles,
		queryAgent:  queryAgent,
		defectAgent: defectAgent,
		executor:    executor,
		charts:      charts,
		opts:        opts,
	}
}

// Start spawns the periodic sweep task.
func (o *Orchestrator) Start() error {
	o.cron = cron.New()
	if _, err := o.cron.AddFunc(o.opts.SweepSpec, func() { o.Sweep(time.Now()) }); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	o.cron.Start()
	log.Printf("[orchestrator] sweep scheduled %s", o.opts.SweepSpec)
	return nil
}

// Stop cancels the sweep task and waits for a running sweep to finish.
func (o *Orchestrator) Stop() {
	if o.cron != nil {
		<-o.cron.Stop().Done()
	}
}

// Sweep reaps idle sessions, empty rate windows and expired bundles. Safe to
// run concurrently with request handling and idempotent.
func (o *Orchestrator) Sweep(now time.Time) {
	sessions := o.sessions.Sweep(now, o.opts.SessionIdleTimeout)
	windows := o.limiter.Sweep(now)
	bundles := o.bundles.Sweep(now)
	log.Printf("[orchestrator] sweep done: sessions=%d windows=%d bundles=%d live_sessions=%d stored_bundles=%d",
		sessions, windows, bundles, o.sessions.Len(), o.bundles.Len())
}

// HandleMessage runs one chat turn and returns the response plus the HTTP
// status to serve it with. Stage failures are folded into an error-kind
// response; they never escape as errors.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, message string) (Response, int) {
	if sessionID == "" {
		sessionID = session.NewID()
	}

	if !o.limiter.Allow(sessionID, time.Now()) {
		log.Printf("[orchestrator] throttled session=%s", sessionID)
		return o.respond(sessionID, "Too many requests. Please wait a moment before sending another message.", TypeError),
			http.StatusTooManyRequests
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return o.respond(sessionID, "Message cannot be empty.", TypeError), http.StatusBadRequest
	}

	sess := o.sessions.GetOrCreate(sessionID)
	sess.BeginTurn()
	defer sess.EndTurn()

	resp := o.dispatch(ctx, sessionID, message)
	o.sessions.AppendExchange(sessionID, message, resp.Response)

	return resp, http.StatusOK
}

// dispatch routes the message by intent and converts every stage failure into
// an error-kind response.
func (o *Orchestrator) dispatch(ctx context.Context, sessionID, message string) Response {
	switch intent.Classify(message) {
	case intent.DefectQuery:
		return o.handleDefect(ctx, sessionID, message)
	case intent.ChartQuery:
		return o.handleQueryPath(ctx, sessionID, message, true)
	default:
		return o.handleQueryPath(ctx, sessionID, message, false)
	}
}

func (o *Orchestrator) handleDefect(ctx context.Context, sessionID, message string) Response {
	if o.defectAgent == nil {
		return o.respond(sessionID, "The defect recommendation agent is not configured.", TypeError)
	}

	recommendation, err := o.defectAgent.Invoke(ctx, message, sessionID)
	if err != nil {
		log.Printf("[orchestrator] defect invocation failed session=%s: %v", sessionID, err)
		return o.respond(sessionID, o.upstreamMessage(err, "Error processing defect recommendation. Please try again."), TypeError)
	}
	if strings.HasPrefix(recommendation, "Error") {
		return o.respond(sessionID, recommendation, TypeError)
	}

	return o.respond(sessionID, recommendation, TypeDefect)
}

// handleQueryPath covers both chart and text questions: the query agent
// generates a statement, the execution service runs it, and the result is
// rendered as an artifact or paginated text.
func (o *Orchestrator) handleQueryPath(ctx context.Context, sessionID, message string, wantChart bool) Response {
	if o.queryAgent == nil {
		return o.respond(sessionID, "The query generation agent is not configured.", TypeError)
	}
	if o.executor == nil {
		return o.respond(sessionID, "The query execution backend is not configured.", TypeError)
	}

	generated, err := o.queryAgent.Invoke(ctx, message, sessionID)
	if err != nil {
		log.Printf("[orchestrator] query generation failed session=%s: %v", sessionID, err)
		return o.respond(sessionID, o.upstreamMessage(err, "Error generating a query for your question. Please try again."), TypeError)
	}

	sql := query.ExtractSQL(generated)
	log.Printf("[orchestrator] generated query session=%s: %s", sessionID, sql)

	if wantChart {
		return o.handleChart(ctx, sessionID, sql, message)
	}
	return o.handleText(ctx, sessionID, sql, message)
}

func (o *Orchestrator) handleChart(ctx context.Context, sessionID, sql, message string) Response {
	points, err := o.executor.ChartData(ctx, sql)
	if err != nil {
		log.Printf("[orchestrator] chart data fetch failed session=%s: %v", sessionID, err)
		return o.respond(sessionID, "Error generating chart: "+err.Error(), TypeError)
	}

	kind := chartgen.Bar
	if intent.WantsPie(message) {
		kind = chartgen.Pie
	}

	filename, err := o.charts.Render(points, kind)
	if err != nil {
		log.Printf("[orchestrator] chart render failed session=%s: %v", sessionID, err)
		return o.respond(sessionID, "Unable to generate chart. The chart file was not created successfully.", TypeError)
	}

	resp := o.respond(sessionID, "I've generated a chart for your query. Here's your visualization:", TypeChart)
	resp.ChartURL = "/api/chart/" + filename
	return resp
}

func (o *Orchestrator) handleText(ctx context.Context, sessionID, sql, originalQuery string) Response {
	rows, err := o.executor.Query(ctx, sql)
	if err != nil {
		log.Printf("[orchestrator] query execution failed session=%s: %v", sessionID, err)
		return o.respond(sessionID, "Error executing query: "+err.Error(), TypeError)
	}

	if len(rows) == 0 {
		return o.respond(sessionID, "No results found for your query. Try refining your search criteria.", TypeText)
	}

	p := o.bundles.Present(rows, originalQuery)
	resp := o.respond(sessionID, p.Text, p.Kind)
	resp.DownloadURL = p.DownloadURL
	return resp
}

// upstreamMessage distinguishes timeouts from other upstream failures in the
// user-facing text.
func (o *Orchestrator) upstreamMessage(err error, fallback string) string {
	if errors.Is(err, agent.ErrInvocationTimeout) {
		return "The agent took too long to respond. Please try again."
	}
	return fallback
}

func (o *Orchestrator) respond(sessionID, text, kind string) Response {
	return Response{
		Response:  text,
		Type:      kind,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// History returns the stored transcript for a session.
func (o *Orchestrator) History(sessionID string) ([]chat.Message, error) {
	return o.sessions.History(sessionID)
}

// DeleteSession removes a session and its rate-limit state. Idempotent.
func (o *Orchestrator) DeleteSession(sessionID string) {
	o.sessions.Remove(sessionID)
	o.limiter.Remove(sessionID)
}

// SessionCount reports the number of live sessions for the health probe.
func (o *Orchestrator) SessionCount() int {
	return o.sessions.Len()
}
