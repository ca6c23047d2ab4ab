package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
)

func TestBuild_WiresRegistriesFromConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	cfg := &config.Config{
		Providers: map[string]*config.ProviderConfig{
			"default": {ID: "default", Type: "openai", Primary: true, AuthEnvVar: "TEST_OPENAI_KEY"},
		},
		Tools: map[string]*config.ToolConfig{
			"soma": {ID: "soma", Category: "arithmetic_add"},
		},
		Agents: map[string]*config.AgentConfig{
			"assistant": {ID: "assistant", Class: "conversational", Description: "You are helpful."},
		},
	}
	cfg.SetDefaults()

	rt, err := Build(cfg, logging.New())
	require.NoError(t, err)

	assert.Equal(t, 1, rt.Tools.Size())
	assert.Equal(t, 1, rt.Agents.Size())
	assert.NotNil(t, rt.Orchestrator)
	assert.Nil(t, rt.Pipeline)
}

func TestBuild_UnknownKnowledgeBaseStoreTypeErrors(t *testing.T) {
	cfg := &config.Config{
		KnowledgeBases: map[string]*config.KnowledgeBaseConfig{
			"docs": {ID: "docs", StoreType: "unsupported", EmbeddingModel: "default"},
		},
	}
	cfg.SetDefaults()

	_, err := Build(cfg, logging.New())
	assert.Error(t, err)
}
