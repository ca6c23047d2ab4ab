// Package app wires a loaded Config into the full set of runtime
// components (C2-C7) the way cmd/chatcore's subcommands need it: the
// registries, the provider cascade, the tool sequence executor, the
// decision engine, an optional default retrieval pipeline, and the chat
// orchestrator sitting on top of all of them.
package app

import (
	"fmt"
	"sort"

	agentbuiltin "github.com/Billhebert/chatIAS-sub000/internal/agent/builtin"
	toolbuiltin "github.com/Billhebert/chatIAS-sub000/internal/tool/builtin"

	"github.com/Billhebert/chatIAS-sub000/internal/agent"
	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/decision"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/orchestrator"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
	"github.com/Billhebert/chatIAS-sub000/internal/retrieval"
	"github.com/Billhebert/chatIAS-sub000/internal/sequence"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

// Context holds every component built from one Config snapshot, ready to
// be wired into a transport (internal/server) or driven directly (a
// one-shot CLI chat).
type Context struct {
	Config       *config.Config
	Logger       *logging.Logger
	Tools        *tool.Registry
	Agents       *agent.Registry
	Cascade      *provider.Cascade
	Executor     *sequence.Executor
	Engine       *decision.Engine
	Pipeline     *retrieval.Pipeline // default knowledge base, nil if none configured
	Orchestrator *orchestrator.Orchestrator
}

// Build constructs a Context from cfg. A bad component registers as a
// load failure inside its own registry rather than aborting boot (spec
// §4.2); only a cascade, decision-engine, or default retrieval pipeline
// construction failure is fatal here.
func Build(cfg *config.Config, logger *logging.Logger) (*Context, error) {
	cascade, err := provider.NewCascade(cfg.Providers, providerFactories(), logger)
	if err != nil {
		return nil, fmt.Errorf("building provider cascade: %w", err)
	}

	tools := tool.NewRegistry()
	tools.Build(cfg.Tools, toolFactories())

	executor := sequence.NewExecutor(tools, cascade, logger)

	agents := agent.NewRegistry()
	agents.Build(cfg.Agents, agentFactories(executor, cascade, cfg.ToolSequences))

	engine, err := decision.NewEngine(cfg.Decision, cascade)
	if err != nil {
		return nil, fmt.Errorf("building decision engine: %w", err)
	}

	pipeline, err := defaultPipeline(cfg, cascade, logger)
	if err != nil {
		return nil, fmt.Errorf("building retrieval pipeline: %w", err)
	}

	history := orchestrator.NewHistoryStore(cfg.History)
	orch := orchestrator.New(agents, tools, cascade, executor, engine, pipeline, history, logger)

	return &Context{
		Config:       cfg,
		Logger:       logger,
		Tools:        tools,
		Agents:       agents,
		Cascade:      cascade,
		Executor:     executor,
		Engine:       engine,
		Pipeline:     pipeline,
		Orchestrator: orch,
	}, nil
}

// providerFactories maps ProviderConfig.Type to a concrete Provider
// constructor. "local" covers the Ollama-style HTTP backend; the
// remaining three are the cloud SDK adapters (spec §11 DOMAIN STACK).
func providerFactories() map[string]provider.Factory {
	return map[string]provider.Factory{
		"anthropic": provider.NewAnthropicFactory(),
		"openai":    provider.NewOpenAIFactory(),
		"gemini":    provider.NewGeminiFactory(),
		"local":     provider.NewOllamaFactory(),
	}
}

// toolFactories maps ToolConfig.Category to the illustrative built-in
// tools (spec §8's worked examples). A deployment adding real tools
// would extend this map with its own categories.
func toolFactories() map[string]tool.Factory {
	return map[string]tool.Factory{
		"arithmetic_add":      toolbuiltin.NewArithmeticFactory("add"),
		"arithmetic_subtract": toolbuiltin.NewArithmeticFactory("subtract"),
		"arithmetic_multiply": toolbuiltin.NewArithmeticFactory("multiply"),
		"arithmetic_divide":   toolbuiltin.NewArithmeticFactory("divide"),
		"file_system":         toolbuiltin.NewFileReaderFactory(),
		"data":                toolbuiltin.NewJSONParserFactory(),
	}
}

// agentFactories maps AgentConfig.Class to a concrete Agent constructor
// (spec §9's "replace metaprogramming with an explicit factory
// registry"). "sequence_runner" drives a configured ToolSequence;
// "conversational" is the generic LLM-backed agent. An agent whose class
// is neither is registered as a load failure by agent.Registry.Build.
func agentFactories(executor *sequence.Executor, cascade *provider.Cascade, sequences map[string]*config.ToolSequenceConfig) map[string]agent.Factory {
	return map[string]agent.Factory{
		"sequence_runner": agentbuiltin.NewSequenceRunnerFactory(executor, sequences),
		"conversational":  agentbuiltin.NewConversationalFactory(cascade),
	}
}

// defaultPipeline builds the one retrieval Pipeline the orchestrator
// dispatches "rag" strategy requests to. When more than one knowledge
// base is configured, the lowest id wins deterministically; a real
// multi-tenant deployment would route on a knowledge_base_id carried in
// the request instead (open question, recorded in DESIGN.md).
func defaultPipeline(cfg *config.Config, cascade *provider.Cascade, logger *logging.Logger) (*retrieval.Pipeline, error) {
	if len(cfg.KnowledgeBases) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(cfg.KnowledgeBases))
	for id, kb := range cfg.KnowledgeBases {
		if kb != nil && config.EnabledOrDefault(kb.Enabled) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	kbID := ids[0]
	kb := cfg.KnowledgeBases[kbID]

	storeFactory, ok := storeFactories()[kb.StoreType]
	if !ok {
		return nil, fmt.Errorf("knowledge base %q: unknown store_type %q", kbID, kb.StoreType)
	}
	store, err := storeFactory(kb)
	if err != nil {
		return nil, fmt.Errorf("knowledge base %q: building vector store: %w", kbID, err)
	}

	embedderProvider, ok := cfg.Providers[kb.EmbeddingModel]
	if !ok {
		return nil, fmt.Errorf("knowledge base %q: embedding_model %q is not a configured provider", kbID, kb.EmbeddingModel)
	}
	embedder, err := retrieval.NewOpenAIEmbedderFactory()(embedderProvider)
	if err != nil {
		return nil, fmt.Errorf("knowledge base %q: building embedder: %w", kbID, err)
	}

	return retrieval.NewPipeline(kbID, kb, cfg.Retrieval, embedder, store, cascade, logger)
}

func storeFactories() map[string]retrieval.StoreFactory {
	return map[string]retrieval.StoreFactory{
		"chromem": retrieval.NewChromemStoreFactory(),
		"qdrant":  retrieval.NewQdrantStoreFactory(),
	}
}
