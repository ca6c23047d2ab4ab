package decision

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
)

// configRule wraps a compiled DecisionConfig rule so the engine treats
// config-declared and built-in seed rules uniformly.
type configRule struct {
	cfg     config.RuleConfig
	pattern *regexp.Regexp
}

func compileConfigRules(rules []config.RuleConfig) ([]configRule, error) {
	out := make([]configRule, 0, len(rules))
	for _, r := range rules {
		pattern, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("decision rule %q: invalid pattern: %w", r.Pattern, err)
		}
		out = append(out, configRule{cfg: r, pattern: pattern})
	}
	return out, nil
}

func (r configRule) match(message string) (*Decision, bool) {
	m := r.pattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(message)))
	if m == nil {
		return nil, false
	}
	params := make(map[string]any)
	for i, name := range r.pattern.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		params[name] = m[i]
	}
	if len(params) == 0 {
		params = nil
	}
	return &Decision{
		Strategy:         Strategy(r.cfg.Strategy),
		Confidence:       r.cfg.Confidence,
		Reasoning:        "configured rule",
		SuggestedToolID:  toolIDIfStrategy(r.cfg),
		SuggestedAgentID: agentIDIfStrategy(r.cfg),
		ExtractedParams:  params,
	}, true
}

func toolIDIfStrategy(cfg config.RuleConfig) string {
	if cfg.Strategy == "tool" {
		return cfg.SuggestedComponentID
	}
	return ""
}

func agentIDIfStrategy(cfg config.RuleConfig) string {
	if cfg.Strategy == "agent" {
		return cfg.SuggestedComponentID
	}
	return ""
}

// classifier asks a provider to pick a strategy for Phase B.
type classifier interface {
	Classify(ctx context.Context, message string, traceID string) (Strategy, error)
}

// cascadeClassifier implements classifier against the Provider Cascade's
// default provider.
type cascadeClassifier struct {
	cascade    *provider.Cascade
	providerID string
}

func (c *cascadeClassifier) Classify(ctx context.Context, message, traceID string) (Strategy, error) {
	prompt := fmt.Sprintf(
		"Classify the following user message into exactly one word from {llm, rag, agent, tool}. Message: %q",
		message,
	)
	result, err := c.cascade.CompleteOne(ctx, c.providerID, &provider.CompletionRequest{
		Messages: []provider.Message{{Role: "user", Content: prompt}},
	}, traceID)
	if err != nil {
		return "", err
	}
	answer := strings.ToLower(strings.TrimSpace(result.Text))
	for _, s := range []Strategy{StrategyLLM, StrategyRAG, StrategyAgent, StrategyTool} {
		if strings.Contains(answer, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unrecognized classification answer %q", result.Text)
}

type cacheEntry struct {
	decision *Decision
	expires  time.Time
}

// Engine is the two-phase Decision Engine of spec §4.7.
type Engine struct {
	rules               []configRule
	useBuiltinRules      bool
	confidenceThreshold float64
	llmAssisted         bool
	classifier          classifier
	cache               *lru.Cache[string, cacheEntry]
	cacheTTL            time.Duration
}

// NewEngine builds an Engine from DecisionConfig. When cfg.Rules is
// empty the built-in seed rules (spec §4.7) supply Phase A.
func NewEngine(cfg config.DecisionConfig, cascade *provider.Cascade) (*Engine, error) {
	compiled, err := compileConfigRules(cfg.Rules)
	if err != nil {
		return nil, err
	}

	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.7
	}

	size := cfg.DecisionCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("building decision cache: %w", err)
	}

	ttl := time.Duration(cfg.DecisionCacheTTLSecs) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	var cls classifier
	if cfg.LLMAssisted && cascade != nil {
		cls = &cascadeClassifier{cascade: cascade, providerID: cfg.DefaultProviderID}
	}

	return &Engine{
		rules:               compiled,
		useBuiltinRules:     len(compiled) == 0,
		confidenceThreshold: threshold,
		llmAssisted:         cfg.LLMAssisted,
		classifier:          cls,
		cache:               cache,
		cacheTTL:            ttl,
	}, nil
}

// Classify runs Phase A (and Phase B if warranted) for message.
func (e *Engine) Classify(ctx context.Context, message, traceID string) *Decision {
	if cached, ok := e.cache.Get(message); ok && time.Now().Before(cached.expires) {
		return cached.decision
	}

	decision := e.classifyPhaseA(message)

	if e.llmAssisted && e.classifier != nil && decision.Confidence < e.confidenceThreshold {
		if strategy, err := e.classifier.Classify(ctx, message, traceID); err == nil {
			decision = &Decision{
				Strategy:         strategy,
				Confidence:       e.confidenceThreshold,
				Reasoning:        "llm-assisted classification upgraded phase A",
				SuggestedAgentID: decision.SuggestedAgentID,
				SuggestedToolID:  decision.SuggestedToolID,
				ExtractedParams:  decision.ExtractedParams,
			}
		}
	}

	e.cache.Add(message, cacheEntry{decision: decision, expires: time.Now().Add(e.cacheTTL)})
	return decision
}

func (e *Engine) classifyPhaseA(message string) *Decision {
	if !e.useBuiltinRules {
		for _, r := range e.rules {
			if d, ok := r.match(message); ok {
				return d
			}
		}
		return defaultDecision()
	}

	for _, r := range DefaultRules() {
		if d, ok := r.Match(message); ok {
			return d
		}
	}
	return defaultDecision()
}
