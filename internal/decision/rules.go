package decision

import (
	"regexp"
	"strings"
)

// Rule is one Phase A classifier: the first matching rule wins (spec
// §4.7 "Phase A — deterministic rules").
type Rule struct {
	Name  string
	Match func(message string) (*Decision, bool)
}

var greetingStopList = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true, "sup": true,
	"good": true, "morning": true, "afternoon": true, "evening": true,
	"there": true, "greetings": true, "howdy": true,
}

var arithmeticPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(\+|-|x|\*|×|/|÷|plus|minus|times|divided by)\s*(-?\d+(?:\.\d+)?)$`)

var opToTool = map[string]struct {
	tool string
	op   string
}{
	"+": {"soma", "add"}, "plus": {"soma", "add"},
	"-": {"subtracao", "subtract"}, "minus": {"subtracao", "subtract"},
	"x": {"multiplicacao", "multiply"}, "*": {"multiplicacao", "multiply"}, "×": {"multiplicacao", "multiply"}, "times": {"multiplicacao", "multiply"},
	"/": {"divisao", "divide"}, "÷": {"divisao", "divide"}, "divided by": {"divisao", "divide"},
}

var fileReadPattern = regexp.MustCompile(`^(?:read|open)\s+file\s+['"]?([^'"]+?)['"]?$`)
var jsonPattern = regexp.MustCompile(`^(parse|validate)\s+json:?\s*(.+)$`)
var codeAnalysisPattern = regexp.MustCompile(`^(analyze|lint|check syntax)\b`)
var dataProcessingPattern = regexp.MustCompile(`^(validate|transform|aggregate)\s+data\b`)
var taskManagerPattern = regexp.MustCompile(`^(schedule|execute|report)\s+tasks?\b`)
var questionPattern = regexp.MustCompile(`^(what is|what are|how does|how do|why|explain|documentation|api)\b`)

// DefaultRules reproduces the spec's fixed seed-rule semantics in order.
// A deployment may override this entirely via DecisionConfig.Rules.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "greeting", Match: matchGreeting},
		{Name: "arithmetic", Match: matchArithmetic},
		{Name: "file_read", Match: matchFileRead},
		{Name: "json_parse", Match: matchJSON},
		{Name: "code_analysis", Match: matchCodeAnalysis},
		{Name: "data_processing", Match: matchDataProcessing},
		{Name: "task_manager", Match: matchTaskManager},
		{Name: "rag_question", Match: matchQuestion},
	}
}

func normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

func matchGreeting(message string) (*Decision, bool) {
	norm := normalize(message)
	words := strings.Fields(strings.Trim(norm, "!.,?"))
	if len(words) == 0 || len(words) > 4 {
		return nil, false
	}
	for _, w := range words {
		if !greetingStopList[strings.Trim(w, "!.,?")] {
			return nil, false
		}
	}
	return &Decision{Strategy: StrategyLLM, Confidence: 0.95, Reasoning: "greeting"}, true
}

func matchArithmetic(message string) (*Decision, bool) {
	norm := normalize(message)
	m := arithmeticPattern.FindStringSubmatch(norm)
	if m == nil {
		return nil, false
	}
	op, ok := opToTool[m[2]]
	if !ok {
		return nil, false
	}
	return &Decision{
		Strategy:        StrategyTool,
		Confidence:      0.95,
		Reasoning:       "arithmetic expression",
		SuggestedToolID: op.tool,
		ExtractedParams: map[string]any{"x": m[1], "y": m[3], "action": op.op},
	}, true
}

func matchFileRead(message string) (*Decision, bool) {
	norm := normalize(message)
	m := fileReadPattern.FindStringSubmatch(norm)
	if m == nil {
		return nil, false
	}
	return &Decision{
		Strategy:        StrategyTool,
		Confidence:      0.95,
		Reasoning:       "file read request",
		SuggestedToolID: "file_reader",
		ExtractedParams: map[string]any{"path": m[1]},
	}, true
}

func matchJSON(message string) (*Decision, bool) {
	norm := normalize(message)
	m := jsonPattern.FindStringSubmatch(norm)
	if m == nil {
		return nil, false
	}
	return &Decision{
		Strategy:        StrategyTool,
		Confidence:      0.95,
		Reasoning:       "json " + m[1] + " request",
		SuggestedToolID: "json_parser",
		ExtractedParams: map[string]any{"text": strings.TrimSpace(m[2]), "action": m[1]},
	}, true
}

func matchCodeAnalysis(message string) (*Decision, bool) {
	norm := normalize(message)
	if !codeAnalysisPattern.MatchString(norm) {
		return nil, false
	}
	return &Decision{Strategy: StrategyAgent, Confidence: 0.90, Reasoning: "code analysis request", SuggestedAgentID: "code_analyzer"}, true
}

func matchDataProcessing(message string) (*Decision, bool) {
	norm := normalize(message)
	if !dataProcessingPattern.MatchString(norm) {
		return nil, false
	}
	return &Decision{Strategy: StrategyAgent, Confidence: 0.90, Reasoning: "data processing request", SuggestedAgentID: "data_processor"}, true
}

func matchTaskManager(message string) (*Decision, bool) {
	norm := normalize(message)
	if !taskManagerPattern.MatchString(norm) {
		return nil, false
	}
	return &Decision{Strategy: StrategyAgent, Confidence: 0.85, Reasoning: "task management request", SuggestedAgentID: "task_manager"}, true
}

func matchQuestion(message string) (*Decision, bool) {
	norm := normalize(message)
	if !questionPattern.MatchString(norm) && len(norm) < 60 {
		return nil, false
	}
	return &Decision{Strategy: StrategyRAG, Confidence: 0.85, Reasoning: "knowledge-bearing question"}, true
}

// defaultDecision is Phase A's fallback when nothing else matches (spec
// §4.7: "Default -> llm, conf = 0.5").
func defaultDecision() *Decision {
	return &Decision{Strategy: StrategyLLM, Confidence: 0.5, Reasoning: "default conversational"}
}
