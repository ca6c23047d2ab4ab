package decision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
)

type fakeLLMProvider struct{ text string }

func (f *fakeLLMProvider) Name() string { return "fake" }

func (f *fakeLLMProvider) Complete(_ context.Context, _ *provider.CompletionRequest) (*provider.CompletionResult, error) {
	return &provider.CompletionResult{Text: f.text, Provider: "fake"}, nil
}

func newTestCascade(t *testing.T, text string) *provider.Cascade {
	t.Helper()
	cfgs := map[string]*config.ProviderConfig{
		"default": {ID: "default", Type: "cloud", Primary: true},
	}
	factories := map[string]provider.Factory{
		"cloud": func(cfg *config.ProviderConfig) (provider.Provider, error) {
			return &fakeLLMProvider{text: text}, nil
		},
	}
	cascade, err := provider.NewCascade(cfgs, factories, logging.New())
	require.NoError(t, err)
	return cascade
}

func TestEngine_PhaseAHighConfidenceSkipsPhaseB(t *testing.T) {
	engine, err := NewEngine(config.DecisionConfig{LLMAssisted: true, DefaultProviderID: "default"}, newTestCascade(t, "tool"))
	require.NoError(t, err)

	d := engine.Classify(context.Background(), "2 + 2", "trace-1")
	assert.Equal(t, StrategyTool, d.Strategy)
	assert.Equal(t, "soma", d.SuggestedToolID)
}

func TestEngine_LowConfidenceInvokesPhaseB(t *testing.T) {
	engine, err := NewEngine(config.DecisionConfig{
		LLMAssisted:         true,
		DefaultProviderID:   "default",
		ConfidenceThreshold: 0.9,
	}, newTestCascade(t, "rag"))
	require.NoError(t, err)

	d := engine.Classify(context.Background(), "blorp zeeflap", "trace-2")
	assert.Equal(t, StrategyRAG, d.Strategy)
	assert.Contains(t, d.Reasoning, "llm-assisted")
}

func TestEngine_WithoutLLMAssistedStaysOnPhaseA(t *testing.T) {
	engine, err := NewEngine(config.DecisionConfig{LLMAssisted: false}, nil)
	require.NoError(t, err)

	d := engine.Classify(context.Background(), "blorp zeeflap", "trace-3")
	assert.Equal(t, StrategyLLM, d.Strategy)
	assert.InDelta(t, 0.5, d.Confidence, 0.001)
}

func TestEngine_CacheReturnsSameDecisionOnRepeat(t *testing.T) {
	engine, err := NewEngine(config.DecisionConfig{}, nil)
	require.NoError(t, err)

	first := engine.Classify(context.Background(), "hello", "trace-4")
	second := engine.Classify(context.Background(), "hello", "trace-5")
	assert.Same(t, first, second)
}

func TestEngine_ConfigDrivenRulesOverrideBuiltins(t *testing.T) {
	engine, err := NewEngine(config.DecisionConfig{
		Rules: []config.RuleConfig{
			{Pattern: `^ping$`, Strategy: "tool", Confidence: 0.99, SuggestedComponentID: "pong"},
		},
	}, nil)
	require.NoError(t, err)

	d := engine.Classify(context.Background(), "ping", "trace-6")
	assert.Equal(t, StrategyTool, d.Strategy)
	assert.Equal(t, "pong", d.SuggestedToolID)

	fallback := engine.Classify(context.Background(), "2 + 2", "trace-7")
	assert.Equal(t, StrategyLLM, fallback.Strategy)
	assert.InDelta(t, 0.5, fallback.Confidence, 0.001)
}
