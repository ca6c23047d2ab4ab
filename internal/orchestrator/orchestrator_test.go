package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billhebert/chatIAS-sub000/internal/agent"
	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/decision"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
	"github.com/Billhebert/chatIAS-sub000/internal/sequence"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

type fakeArithmeticTool struct{}

func (fakeArithmeticTool) Execute(_ context.Context, _ string, params map[string]any) (tool.Result, error) {
	return tool.Result{OK: true, Data: map[string]any{"result": 4.0}}, nil
}

type fakeGreeterAgent struct{}

func (fakeGreeterAgent) OnInit(context.Context) error    { return nil }
func (fakeGreeterAgent) OnDestroy(context.Context) error { return nil }
func (fakeGreeterAgent) Execute(_ agent.ExecContext, input string) (*agent.Result, error) {
	return &agent.Result{Text: "agent handled: " + input, Confidence: 0.9}, nil
}

type fakeLLMProvider struct{ text string }

func (f *fakeLLMProvider) Name() string { return "fake" }
func (f *fakeLLMProvider) Complete(_ context.Context, _ *provider.CompletionRequest) (*provider.CompletionResult, error) {
	return &provider.CompletionResult{Text: f.text, Provider: "fake"}, nil
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	logger := logging.New()

	tools := tool.NewRegistry()
	tools.Build(
		map[string]*config.ToolConfig{"soma": {ID: "soma", Category: "arithmetic"}},
		map[string]tool.Factory{"arithmetic": func(cfg *config.ToolConfig) (tool.Tool, error) { return fakeArithmeticTool{}, nil }},
	)

	agents := agent.NewRegistry()
	agents.Build(
		map[string]*config.AgentConfig{"code_analyzer": {ID: "code_analyzer", Class: "greeter"}},
		map[string]agent.Factory{"greeter": func(cfg *config.AgentConfig) (agent.Agent, error) { return fakeGreeterAgent{}, nil }},
	)

	cascadeCfgs := map[string]*config.ProviderConfig{
		"default": {ID: "default", Type: "cloud", Primary: true},
	}
	cascade, err := provider.NewCascade(cascadeCfgs, map[string]provider.Factory{
		"cloud": func(cfg *config.ProviderConfig) (provider.Provider, error) { return &fakeLLMProvider{text: "hello from llm"}, nil },
	}, logger)
	require.NoError(t, err)

	executor := sequence.NewExecutor(tools, cascade, logger)

	engine, err := decision.NewEngine(config.DecisionConfig{}, nil)
	require.NoError(t, err)

	history := NewHistoryStore(config.HistoryConfig{})

	return New(agents, tools, cascade, executor, engine, nil, history, logger)
}

func TestOrchestrator_ArithmeticRoutesToTool(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.Handle(context.Background(), ChatRequest{MessageText: "2 + 2", SessionID: "s1"})
	assert.True(t, resp.OK)
	assert.Equal(t, StrategyTool, resp.Strategy)
	assert.Equal(t, "soma", resp.ToolUsed)
	assert.Equal(t, "4", resp.Text)
}

func TestOrchestrator_CodeAnalysisRoutesToAgent(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.Handle(context.Background(), ChatRequest{MessageText: "analyze this snippet", SessionID: "s2"})
	assert.True(t, resp.OK)
	assert.Equal(t, StrategyAgent, resp.Strategy)
	assert.Equal(t, "code_analyzer", resp.AgentUsed)
	assert.Contains(t, resp.Text, "agent handled")
}

func TestOrchestrator_DefaultRoutesToLLM(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.Handle(context.Background(), ChatRequest{MessageText: "tell me a story", SessionID: "s3"})
	assert.True(t, resp.OK)
	assert.Equal(t, StrategyLLM, resp.Strategy)
	assert.Equal(t, "hello from llm", resp.Text)
}

func TestOrchestrator_ClearCommandBypassesDecisionEngine(t *testing.T) {
	o := newTestOrchestrator(t)
	o.Handle(context.Background(), ChatRequest{MessageText: "hello", SessionID: "s4"})
	resp := o.Handle(context.Background(), ChatRequest{MessageText: "/clear", SessionID: "s4"})
	assert.True(t, resp.OK)
	assert.Equal(t, StrategyCommand, resp.Strategy)
	assert.Empty(t, o.history.Turns("s4"))
}

func TestOrchestrator_UnknownCommandReturnsError(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.Handle(context.Background(), ChatRequest{MessageText: "/bogus", SessionID: "s5"})
	assert.False(t, resp.OK)
	assert.Equal(t, StrategyCommand, resp.Strategy)
}

func TestOrchestrator_OversizeMessageIsRejected(t *testing.T) {
	o := newTestOrchestrator(t)
	big := make([]byte, MaxMessageBytes+1)
	resp := o.Handle(context.Background(), ChatRequest{MessageText: string(big), SessionID: "s6"})
	assert.False(t, resp.OK)
	assert.Equal(t, StrategyError, resp.Strategy)
}

func TestOrchestrator_EveryRequestGetsATraceID(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.Handle(context.Background(), ChatRequest{MessageText: "hi"})
	assert.NotEmpty(t, resp.TraceID)
}
