// Package decision implements the two-phase Decision Engine (spec §4.7):
// deterministic ordered rules (Phase A) with an optional LLM-assisted
// fallback (Phase B) for low-confidence classifications.
package decision

// Strategy is the dispatch target a Decision selects (spec §3).
type Strategy string

const (
	StrategyLLM   Strategy = "llm"
	StrategyRAG   Strategy = "rag"
	StrategyAgent Strategy = "agent"
	StrategyTool  Strategy = "tool"
)

// Decision is produced once per request and consumed once by the
// orchestrator (spec §3).
type Decision struct {
	Strategy         Strategy
	Confidence       float64
	Reasoning        string
	SuggestedAgentID string
	SuggestedToolID  string
	ExtractedParams  map[string]any
}
