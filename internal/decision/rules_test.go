package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchAny(message string) (*Decision, bool) {
	for _, r := range DefaultRules() {
		if d, ok := r.Match(message); ok {
			return d, true
		}
	}
	return nil, false
}

func TestRules_Greeting(t *testing.T) {
	d, ok := matchAny("Hi there!")
	require.True(t, ok)
	assert.Equal(t, StrategyLLM, d.Strategy)
	assert.InDelta(t, 0.95, d.Confidence, 0.001)
}

func TestRules_Arithmetic(t *testing.T) {
	d, ok := matchAny("2 + 2")
	require.True(t, ok)
	assert.Equal(t, StrategyTool, d.Strategy)
	assert.Equal(t, "soma", d.SuggestedToolID)
	assert.Equal(t, "2", d.ExtractedParams["x"])
	assert.Equal(t, "2", d.ExtractedParams["y"])
	assert.Equal(t, "add", d.ExtractedParams["action"])
}

func TestRules_ArithmeticDivide(t *testing.T) {
	d, ok := matchAny("10 / 2")
	require.True(t, ok)
	assert.Equal(t, "divisao", d.SuggestedToolID)
	assert.Equal(t, "divide", d.ExtractedParams["action"])
}

func TestRules_FileRead(t *testing.T) {
	d, ok := matchAny(`read file "notes.txt"`)
	require.True(t, ok)
	assert.Equal(t, StrategyTool, d.Strategy)
	assert.Equal(t, "file_reader", d.SuggestedToolID)
	assert.Equal(t, "notes.txt", d.ExtractedParams["path"])
}

func TestRules_JSONParse(t *testing.T) {
	d, ok := matchAny(`parse json: {"a":1}`)
	require.True(t, ok)
	assert.Equal(t, "json_parser", d.SuggestedToolID)
	assert.Equal(t, "parse", d.ExtractedParams["action"])
}

func TestRules_CodeAnalysis(t *testing.T) {
	d, ok := matchAny("analyze this function for bugs")
	require.True(t, ok)
	assert.Equal(t, StrategyAgent, d.Strategy)
	assert.Equal(t, "code_analyzer", d.SuggestedAgentID)
}

func TestRules_DataProcessing(t *testing.T) {
	d, ok := matchAny("validate data in this csv")
	require.True(t, ok)
	assert.Equal(t, "data_processor", d.SuggestedAgentID)
}

func TestRules_TaskManager(t *testing.T) {
	d, ok := matchAny("schedule tasks for tomorrow")
	require.True(t, ok)
	assert.Equal(t, "task_manager", d.SuggestedAgentID)
}

func TestRules_Question(t *testing.T) {
	d, ok := matchAny("what is the capital of France")
	require.True(t, ok)
	assert.Equal(t, StrategyRAG, d.Strategy)
}

func TestRules_NoMatchFallsThroughToDefault(t *testing.T) {
	_, ok := matchAny("blorp zeeflap")
	assert.False(t, ok)
	d := defaultDecision()
	assert.Equal(t, StrategyLLM, d.Strategy)
	assert.InDelta(t, 0.5, d.Confidence, 0.001)
}
