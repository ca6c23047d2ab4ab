package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Billhebert/chatIAS-sub000/internal/agent"
	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/decision"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/orchestrator"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
	"github.com/Billhebert/chatIAS-sub000/internal/sequence"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

type fakeLLMProvider struct{}

func (f *fakeLLMProvider) Name() string { return "fake" }
func (f *fakeLLMProvider) Complete(_ context.Context, _ *provider.CompletionRequest) (*provider.CompletionResult, error) {
	return &provider.CompletionResult{Text: "hi", Provider: "fake"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logging.New()

	tools := tool.NewRegistry()
	agents := agent.NewRegistry()

	cascadeCfgs := map[string]*config.ProviderConfig{"default": {ID: "default", Type: "cloud", Primary: true}}
	cascade, err := provider.NewCascade(cascadeCfgs, map[string]provider.Factory{
		"cloud": func(cfg *config.ProviderConfig) (provider.Provider, error) { return &fakeLLMProvider{}, nil },
	}, logger)
	require.NoError(t, err)

	executor := sequence.NewExecutor(tools, cascade, logger)
	engine, err := decision.NewEngine(config.DecisionConfig{}, nil)
	require.NoError(t, err)
	history := orchestrator.NewHistoryStore(config.HistoryConfig{})
	orch := orchestrator.New(agents, tools, cascade, executor, engine, nil, history, logger)

	cfg := &config.Config{System: config.SystemConfig{Version: "0.1.0-test"}}
	return New(orch, agents, tools, cascade, nil, logger, cfg)
}

func TestServer_ChatEndpointRoutesToLLM(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"message": "tell me a story"})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp chatResponseBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "llm", resp.Strategy)
	assert.Equal(t, "hi", resp.Text)
}

func TestServer_ChatEndpointRejectsMissingMessage(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_HealthEndpointReportsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestServer_ProvidersEndpointListsCascade(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "default")
}

func TestServer_RateLimitRejectsBurst(t *testing.T) {
	s := newTestServer(t)
	s.limiter = rate.NewLimiter(rate.Limit(0.0001), 1)

	body, _ := json.Marshal(map[string]string{"message": "hi"})
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		last = httptest.NewRecorder()
		s.Handler().ServeHTTP(last, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}
