// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads, substitutes, decodes, and validates the core's
// single declarative configuration document (spec §4.1, §6).
package config

// Config is the root of the declarative configuration document.
type Config struct {
	System          SystemConfig                    `yaml:"system,omitempty"`
	Providers       map[string]*ProviderConfig       `yaml:"providers,omitempty"`
	KnowledgeBases  map[string]*KnowledgeBaseConfig  `yaml:"knowledge_bases,omitempty"`
	Tools           map[string]*ToolConfig           `yaml:"tools,omitempty"`
	Agents          map[string]*AgentConfig          `yaml:"agents,omitempty"`
	ToolSequences   map[string]*ToolSequenceConfig   `yaml:"tool_sequences,omitempty"`
	Decision        DecisionConfig                   `yaml:"decision,omitempty"`
	History         HistoryConfig                    `yaml:"history,omitempty"`
	Retrieval       RetrievalConfig                  `yaml:"retrieval,omitempty"`
	Logging         LoggingConfig                    `yaml:"logging,omitempty"`
}

// SystemConfig holds process-wide identity and behavior switches.
type SystemConfig struct {
	Name        string `yaml:"name,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Environment string `yaml:"environment,omitempty"`
	Strict      bool   `yaml:"strict,omitempty"`
	HotReload   bool   `yaml:"hotReload,omitempty"`
}

// ProviderConfig is the ProviderDescriptor of spec §3.
type ProviderConfig struct {
	ID                 string   `yaml:"-"`
	Type               string   `yaml:"type,omitempty"` // local | cloud
	BaseURL            string   `yaml:"base_url,omitempty"`
	Models             []string `yaml:"models,omitempty"`
	DefaultModel       string   `yaml:"default_model,omitempty"`
	AuthEnvVar         string   `yaml:"auth_env_var,omitempty"`
	Primary            bool     `yaml:"primary,omitempty"`
	Enabled            *bool    `yaml:"enabled,omitempty"`
	TimeoutMs          int      `yaml:"timeout_ms,omitempty"`
	FallbackProviderID string   `yaml:"fallback_provider_id,omitempty"`

	HealthCheck    HealthCheckConfig    `yaml:"health_check,omitempty"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker,omitempty"`
}

// HealthCheckConfig configures an optional liveness probe for a provider.
type HealthCheckConfig struct {
	Enabled    bool   `yaml:"enabled,omitempty"`
	Path       string `yaml:"path,omitempty"`
	IntervalMs int    `yaml:"interval_ms,omitempty"`
}

// CircuitBreakerConfig is the per-provider breaker tuning (spec §4.4).
type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold,omitempty"`
	SuccessThreshold int `yaml:"success_threshold,omitempty"`
	OpenTimeoutMs    int `yaml:"open_timeout_ms,omitempty"`
}

// KnowledgeBaseConfig is the KnowledgeBaseDescriptor of spec §3.
type KnowledgeBaseConfig struct {
	ID             string  `yaml:"-"`
	StoreType      string  `yaml:"store_type,omitempty"` // qdrant | chromem
	Dimension      int     `yaml:"dimension,omitempty"`
	DistanceMetric string  `yaml:"distance_metric,omitempty"`
	EmbeddingModel string  `yaml:"embedding_model,omitempty"` // references a provider id
	TopK           int     `yaml:"top_k,omitempty"`
	ScoreThreshold float64 `yaml:"score_threshold,omitempty"`
	Enabled        *bool   `yaml:"enabled,omitempty"`

	// Connection is backend-specific: a URL for qdrant, a directory for chromem.
	Connection string `yaml:"connection,omitempty"`
}

// ParamSpec describes one typed parameter accepted by a tool or action.
type ParamSpec struct {
	Type     string   `yaml:"type,omitempty"`
	Required bool     `yaml:"required,omitempty"`
	Default  any      `yaml:"default,omitempty"`
	Enum     []string `yaml:"enum,omitempty"`
	Min      *float64 `yaml:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty"`
}

// ActionSpec is a named operation a tool exposes, with its own parameter
// subset layered over the tool's base Parameters.
type ActionSpec struct {
	Parameters map[string]ParamSpec `yaml:"parameters,omitempty"`
}

// ToolConstraints bounds what a tool is allowed to touch.
type ToolConstraints struct {
	MaxExecutionTimeMs int      `yaml:"max_execution_time_ms,omitempty"`
	NoFileSystem       bool     `yaml:"no_file_system,omitempty"`
	NoNetwork          bool     `yaml:"no_network,omitempty"`
	AllowedPaths       []string `yaml:"allowed_paths,omitempty"`
	AllowedExtensions  []string `yaml:"allowed_extensions,omitempty"`
}

// ToolConfig is the ToolDescriptor of spec §3.
type ToolConfig struct {
	ID             string                `yaml:"-"`
	Category       string                `yaml:"category,omitempty"`
	Parameters     map[string]ParamSpec  `yaml:"parameters,omitempty"`
	Actions        map[string]ActionSpec `yaml:"actions,omitempty"`
	Constraints    ToolConstraints       `yaml:"constraints,omitempty"`
	RequiredBy     []string              `yaml:"required_by,omitempty"`
	ConflictsWith  []string              `yaml:"conflicts_with,omitempty"`
	Enabled        *bool                 `yaml:"enabled,omitempty"`
}

// Permission is one bit of an AgentConfig's permission bitfield.
type Permission uint32

const (
	PermReadFile Permission = 1 << iota
	PermWriteFile
	PermExecuteCode
	PermNetwork
	PermCallSubagents
	PermUseTools
)

// Has reports whether p includes the given permission bit.
func (p Permission) Has(bit Permission) bool { return p&bit != 0 }

// RoutingConfig tunes how the Decision Engine favors a particular agent.
type RoutingConfig struct {
	Keywords     []string `yaml:"keywords,omitempty"`
	Priority     int      `yaml:"priority,omitempty"`
	MinConfidence float64 `yaml:"min_confidence,omitempty"`
}

// AgentConfig is the AgentDescriptor of spec §3.
type AgentConfig struct {
	ID               string        `yaml:"-"`
	Class            string        `yaml:"class,omitempty"`
	Version          string        `yaml:"version,omitempty"`
	Enabled          *bool         `yaml:"enabled,omitempty"`
	Description      string        `yaml:"description,omitempty"`
	AllowedTools     []string      `yaml:"allowed_tools,omitempty"`
	AllowedSubagents []string      `yaml:"allowed_subagents,omitempty"`
	Routing          RoutingConfig `yaml:"routing,omitempty"`
	Permissions      Permission    `yaml:"permissions,omitempty"`
	MCPPreference    string        `yaml:"mcp_preference,omitempty"` // local | cloud
	FallbackAllowed  bool          `yaml:"fallback_allowed,omitempty"`
	Schedule         string        `yaml:"schedule,omitempty"` // optional cron expression (supplemented feature)
	RunSequence      string        `yaml:"run_sequence,omitempty"`
}

// StepConfig is one Step of a ToolSequence (spec §3).
type StepConfig struct {
	Order         int               `yaml:"order"`
	ToolID        string            `yaml:"tool_id,omitempty"`
	MCPID         string            `yaml:"mcp_id,omitempty"`
	Action        string            `yaml:"action,omitempty"`
	Params        map[string]string `yaml:"params,omitempty"`
	OnSuccess     string            `yaml:"on_success,omitempty"` // continue | stop | skip
	OnError       string            `yaml:"on_error,omitempty"`   // continue | stop | log_warning | fallback
	FallbackMCPID string            `yaml:"fallback_mcp_id,omitempty"`
	ParallelGroup string            `yaml:"parallel_group,omitempty"`
}

// RetryConfig is the sequence-level retry policy.
type RetryConfig struct {
	Enabled            bool `yaml:"enabled,omitempty"`
	MaxRetries         int  `yaml:"max_retries,omitempty"`
	BackoffMs          int  `yaml:"backoff_ms,omitempty"`
	ExponentialBackoff bool `yaml:"exponential_backoff,omitempty"`
}

// SequenceCircuitBreakerConfig is the optional sequence-level breaker,
// independent of any per-provider breaker (spec §4.6).
type SequenceCircuitBreakerConfig struct {
	Enabled          bool `yaml:"enabled,omitempty"`
	FailureThreshold int  `yaml:"failure_threshold,omitempty"`
	TimeoutMs        int  `yaml:"timeout_ms,omitempty"`
	WindowSize       int  `yaml:"window_size,omitempty"`
}

// ToolSequenceConfig is the ToolSequence of spec §3.
type ToolSequenceConfig struct {
	ID             string                        `yaml:"-"`
	Steps          []StepConfig                  `yaml:"steps,omitempty"`
	ErrorStrategy  string                        `yaml:"error_strategy,omitempty"` // fail_fast | continue_on_error | retry_all
	Retry          RetryConfig                   `yaml:"retry,omitempty"`
	CircuitBreaker *SequenceCircuitBreakerConfig `yaml:"circuit_breaker,omitempty"`
}

// RuleConfig is one deterministic Phase A classification rule (spec §4.7).
type RuleConfig struct {
	Pattern              string  `yaml:"pattern"`
	Strategy             string  `yaml:"strategy"`
	Confidence           float64 `yaml:"confidence"`
	SuggestedComponentID string  `yaml:"suggested_component_id,omitempty"`
	ParamExtractor       string  `yaml:"param_extractor,omitempty"`
}

// DecisionConfig configures the Decision Engine (spec §4.7).
type DecisionConfig struct {
	ConfidenceThreshold  float64      `yaml:"confidence_threshold,omitempty"`
	LLMAssisted          bool         `yaml:"llm_assisted,omitempty"`
	Rules                []RuleConfig `yaml:"rules,omitempty"`
	DecisionCacheTTLSecs int          `yaml:"decision_cache_ttl_s,omitempty"`
	DecisionCacheSize    int          `yaml:"decision_cache_size,omitempty"`
	DefaultProviderID    string       `yaml:"default_provider_id,omitempty"`
}

// HistoryConfig bounds ConversationHistory (spec §3).
type HistoryConfig struct {
	MaxTurns               int    `yaml:"max_turns,omitempty"`
	PerSessionConcurrency  string `yaml:"per_session_concurrency,omitempty"` // queue | reject
}

// RetrievalConfig configures the Retrieval Subsystem (spec §4.5).
type RetrievalConfig struct {
	DefaultTopK         int     `yaml:"default_top_k,omitempty"`
	ScoreThreshold      float64 `yaml:"score_threshold,omitempty"`
	EmbeddingCacheSize  int     `yaml:"embedding_cache_size,omitempty"`
	ContextBudgetTokens int     `yaml:"context_budget_tokens,omitempty"` // tiktoken-counted, not chars
	RAGDegradeToLLM     *bool   `yaml:"rag_degrade_to_llm,omitempty"`
}

// LoggingConfig configures the C3 ring buffer and console sink.
type LoggingConfig struct {
	RingSize        int    `yaml:"ring_size,omitempty"`
	LevelFilter     string `yaml:"level_filter,omitempty"`
	ConsoleColorize *bool  `yaml:"console_colorize,omitempty"`
}

// EnabledOrDefault resolves a *bool "enabled" field, defaulting to true
// when unset (matching the teacher's convention that absence means on).
func EnabledOrDefault(b *bool) bool {
	return b == nil || *b
}
