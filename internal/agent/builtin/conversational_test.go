package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billhebert/chatIAS-sub000/internal/agent"
	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
)

type fakeProvider struct{ text string }

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Complete(_ context.Context, _ *provider.CompletionRequest) (*provider.CompletionResult, error) {
	return &provider.CompletionResult{Text: f.text, Provider: "fake"}, nil
}

func newTestCascade(t *testing.T, text string) *provider.Cascade {
	t.Helper()
	cfgs := map[string]*config.ProviderConfig{"default": {ID: "default", Type: "cloud", Primary: true}}
	cascade, err := provider.NewCascade(cfgs, map[string]provider.Factory{
		"cloud": func(cfg *config.ProviderConfig) (provider.Provider, error) { return &fakeProvider{text: text}, nil },
	}, logging.New())
	require.NoError(t, err)
	return cascade
}

func TestConversationalAgent_CompletesViaCascade(t *testing.T) {
	factory := NewConversationalFactory(newTestCascade(t, "hello there"))
	impl, err := factory(&config.AgentConfig{ID: "assistant", Description: "You are helpful."})
	require.NoError(t, err)

	result, err := impl.Execute(agent.ExecContext{Context: context.Background(), TraceID: "trace-1"}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", result.Text)
	assert.Equal(t, "fake", result.Metadata["provider"])
}
