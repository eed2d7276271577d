package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tracelight/defectdesk/internal/config"
	"github.com/tracelight/defectdesk/internal/handler"
	"github.com/tracelight/defectdesk/internal/model/agentdef"
	"github.com/tracelight/defectdesk/internal/service/agent"
	"github.com/tracelight/defectdesk/internal/service/chartgen"
	"github.com/tracelight/defectdesk/internal/service/export"
	"github.com/tracelight/defectdesk/internal/service/orchestrator"
	"github.com/tracelight/defectdesk/internal/service/query"
	"github.com/tracelight/defectdesk/internal/service/ratelimit"
	"github.com/tracelight/defectdesk/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	profiles := agentdef.NewMemoryStore(agentdef.Seed())

	queryAgent := buildAgent(ctx, profiles, agentdef.QueryAgentID, cfg.QueryAgent, cfg.Limits.AgentTimeout)
	defectAgent := buildAgent(ctx, profiles, agentdef.DefectAgentID, cfg.DefectAgent, cfg.Limits.AgentTimeout)

	var executor query.Executor
	if cfg.Executor.Enabled() {
		executor = query.NewHTTPExecutor(cfg.Executor.URL, cfg.Executor.Timeout)
		log.Printf("query executor initialized, backend=%s", cfg.Executor.URL)
	} else {
		log.Println("EXECUTOR_URL not configured, query execution disabled")
	}

	bundles := export.NewStore()
	orch := orchestrator.New(
		session.NewStore(),
		ratelimit.NewLimiter(cfg.Limits.RateLimit, cfg.Limits.RateWindow),
		bundles,
		queryAgent,
		defectAgent,
		executor,
		chartgen.NewFileRenderer(cfg.Charts.Dir),
		orchestrator.Options{
			SessionIdleTimeout: cfg.Limits.SessionIdleTimeout,
			SweepSpec:          cfg.Limits.SweepSpec,
		},
	)
	if err := orch.Start(); err != nil {
		log.Fatalf("failed to start orchestrator: %v", err)
	}
	defer orch.Stop()

	router := handler.NewRouter(orch, bundles, cfg.Charts.Dir)

	startServer(ctx, cfg.Server, router)
}

// buildAgent wires one agent role. A missing or failing model configuration
// logs a warning and leaves the role disabled.
func buildAgent(ctx context.Context, profiles agentdef.Store, profileID string, cfg config.AgentConfig, timeout time.Duration) orchestrator.Invoker {
	profile, ok := profiles.FindByID(profileID)
	if !ok {
		log.Printf("warning: unknown agent profile %q", profileID)
		return nil
	}

	if !cfg.Enabled() {
		log.Printf("%s agent credentials not configured, role disabled", profile.Name)
		return nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		log.Printf("warning: failed to initialize %s agent: %v", profile.Name, err)
		return nil
	}

	log.Printf("%s agent initialized, model=%s", profile.Name, cfg.Model)
	return agent.NewGateway(agent.NewModelClient(chatModel), profile, timeout)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("defectdesk backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
