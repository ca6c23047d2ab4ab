package provider

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
)

type fakeProvider struct {
	name    string
	text    string
	failErr error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, _ *CompletionRequest) (*CompletionResult, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	return &CompletionResult{Text: f.text, Provider: f.name}, nil
}

func newTestCascade(t *testing.T, cfgs map[string]*config.ProviderConfig, impls map[string]Provider) *Cascade {
	t.Helper()
	factories := map[string]Factory{
		"cloud": func(cfg *config.ProviderConfig) (Provider, error) { return impls[cfg.ID], nil },
		"local": func(cfg *config.ProviderConfig) (Provider, error) { return impls[cfg.ID], nil },
	}
	c, err := NewCascade(cfgs, factories, logging.New())
	require.NoError(t, err)
	return c
}

func TestCascade_PrimaryFirstThenRemoteThenLocal(t *testing.T) {
	cfgs := map[string]*config.ProviderConfig{
		"remote-a": {ID: "remote-a", Type: "cloud"},
		"local-a":  {ID: "local-a", Type: "local"},
		"primary":  {ID: "primary", Type: "cloud", Primary: true},
	}
	ordered := orderCascade(cfgs)
	require.Len(t, ordered, 3)
	assert.Equal(t, "primary", ordered[0].ID)
	assert.Equal(t, "local-a", ordered[2].ID)
}

func TestCascade_ReturnsFirstSuccess(t *testing.T) {
	cfgs := map[string]*config.ProviderConfig{
		"primary":  {ID: "primary", Type: "cloud", Primary: true},
		"fallback": {ID: "fallback", Type: "cloud"},
	}
	impls := map[string]Provider{
		"primary":  &fakeProvider{name: "primary", failErr: fmt.Errorf("boom")},
		"fallback": &fakeProvider{name: "fallback", text: "hello"},
	}
	c := newTestCascade(t, cfgs, impls)

	res, err := c.Complete(context.Background(), &CompletionRequest{}, "trace-1")
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Provider)
}

func TestCascade_AllProvidersExhausted(t *testing.T) {
	cfgs := map[string]*config.ProviderConfig{
		"a": {ID: "a", Type: "cloud"},
		"b": {ID: "b", Type: "cloud"},
	}
	impls := map[string]Provider{
		"a": &fakeProvider{name: "a", failErr: fmt.Errorf("down")},
		"b": &fakeProvider{name: "b", failErr: fmt.Errorf("down too")},
	}
	c := newTestCascade(t, cfgs, impls)

	_, err := c.Complete(context.Background(), &CompletionRequest{}, "trace-2")
	require.Error(t, err)
	var exhausted *AllProvidersExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Attempts, 2)
}

func TestCascade_SkipsOpenCircuit(t *testing.T) {
	cfgs := map[string]*config.ProviderConfig{
		"a": {ID: "a", Type: "cloud", CircuitBreaker: config.CircuitBreakerConfig{FailureThreshold: 1, OpenTimeoutMs: 60000}},
		"b": {ID: "b", Type: "cloud"},
	}
	impls := map[string]Provider{
		"a": &fakeProvider{name: "a", failErr: fmt.Errorf("down")},
		"b": &fakeProvider{name: "b", text: "ok"},
	}
	c := newTestCascade(t, cfgs, impls)

	_, err := c.Complete(context.Background(), &CompletionRequest{}, "trace-3")
	require.NoError(t, err)

	res, err := c.Complete(context.Background(), &CompletionRequest{}, "trace-4")
	require.NoError(t, err)
	assert.Equal(t, "b", res.Provider)
}
