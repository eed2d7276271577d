package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the service.
type Config struct {
	Server      ServerConfig
	QueryAgent  AgentConfig
	DefectAgent AgentConfig
	Executor    ExecutorConfig
	Charts      ChartConfig
	Limits      LimitConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	queryAgent, err := loadAgentConfig("QUERY_AGENT")
	if err != nil {
		return nil, err
	}

	defectAgent, err := loadAgentConfig("DEFECT_AGENT")
	if err != nil {
		return nil, err
	}

	executor, err := loadExecutorConfig()
	if err != nil {
		return nil, err
	}

	limits, err := loadLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:      server,
		QueryAgent:  queryAgent,
		DefectAgent: defectAgent,
		Executor:    executor,
		Charts:      loadChartConfig(),
		Limits:      limits,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AgentConfig describes one upstream model. Two instances are loaded, one per
// agent role, each from its own environment prefix.
type AgentConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials were provided.
func (c AgentConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AgentConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("agent credentials missing: provide API key + model, or AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAgentConfig(prefix string) (AgentConfig, error) {
	temperature, err := parseOptionalFloatEnv(prefix + "_TEMPERATURE")
	if err != nil {
		return AgentConfig{}, err
	}

	topP, err := parseOptionalFloatEnv(prefix + "_TOP_P")
	if err != nil {
		return AgentConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv(prefix + "_MAX_TOKENS")
	if err != nil {
		return AgentConfig{}, err
	}

	return AgentConfig{
		APIKey:      strings.TrimSpace(os.Getenv(prefix + "_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv(prefix + "_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv(prefix + "_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv(prefix + "_MODEL")),
		BaseURL:     getEnvOrDefault(prefix+"_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault(prefix+"_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// ExecutorConfig describes the query execution backend.
type ExecutorConfig struct {
	URL     string
	Timeout time.Duration
}

// Enabled reports whether a backend endpoint was provided.
func (c ExecutorConfig) Enabled() bool {
	return c.URL != ""
}

func loadExecutorConfig() (ExecutorConfig, error) {
	timeout := 30 * time.Second
	if override, err := parseOptionalIntEnv("EXECUTOR_TIMEOUT_SECONDS"); err != nil {
		return ExecutorConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ExecutorConfig{}, fmt.Errorf("EXECUTOR_TIMEOUT_SECONDS must be positive, got %d", *override)
		}
		timeout = time.Duration(*override) * time.Second
	}

	return ExecutorConfig{
		URL:     strings.TrimSpace(os.Getenv("EXECUTOR_URL")),
		Timeout: timeout,
	}, nil
}

// ChartConfig describes where rendered chart files land.
type ChartConfig struct {
	Dir string
}

func loadChartConfig() ChartConfig {
	return ChartConfig{Dir: getEnvOrDefault("CHART_DIR", "charts")}
}

// LimitConfig carries the admission and lifecycle tunables.
type LimitConfig struct {
	RateLimit          int
	RateWindow         time.Duration
	AgentTimeout       time.Duration
	SessionIdleTimeout time.Duration
	SweepSpec          string
}

func loadLimitConfig() (LimitConfig, error) {
	limits := LimitConfig{
		RateLimit:          30,
		RateWindow:         time.Minute,
		AgentTimeout:       120 * time.Second,
		SessionIdleTimeout: 30 * time.Minute,
		SweepSpec:          getEnvOrDefault("SWEEP_SPEC", "@every 30m"),
	}

	if override, err := parseOptionalIntEnv("RATE_LIMIT"); err != nil {
		return LimitConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return LimitConfig{}, fmt.Errorf("RATE_LIMIT must be positive, got %d", *override)
		}
		limits.RateLimit = *override
	}

	if override, err := parseOptionalIntEnv("RATE_WINDOW_SECONDS"); err != nil {
		return LimitConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return LimitConfig{}, fmt.Errorf("RATE_WINDOW_SECONDS must be positive, got %d", *override)
		}
		limits.RateWindow = time.Duration(*override) * time.Second
	}

	if override, err := parseOptionalIntEnv("AGENT_TIMEOUT_SECONDS"); err != nil {
		return LimitConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return LimitConfig{}, fmt.Errorf("AGENT_TIMEOUT_SECONDS must be positive, got %d", *override)
		}
		limits.AgentTimeout = time.Duration(*override) * time.Second
	}

	if override, err := parseOptionalIntEnv("SESSION_IDLE_MINUTES"); err != nil {
		return LimitConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return LimitConfig{}, fmt.Errorf("SESSION_IDLE_MINUTES must be positive, got %d", *override)
		}
		limits.SessionIdleTimeout = time.Duration(*override) * time.Minute
	}

	return limits, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
