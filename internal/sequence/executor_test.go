package sequence

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

type echoTool struct{ fail bool }

func (e *echoTool) Execute(_ context.Context, _ string, params map[string]any) (tool.Result, error) {
	if e.fail {
		return tool.Result{OK: false, Error: fmt.Errorf("echo tool failure")}, nil
	}
	return tool.Result{OK: true, Data: map[string]any{"echoed": params["value"]}}, nil
}

func newTestRegistry(toolID string, fail bool) *tool.Registry {
	reg := tool.NewRegistry()
	reg.Build(
		map[string]*config.ToolConfig{toolID: {ID: toolID, Category: "execution"}},
		map[string]tool.Factory{"execution": func(cfg *config.ToolConfig) (tool.Tool, error) {
			return &echoTool{fail: fail}, nil
		}},
	)
	return reg
}

func TestExecutor_RunsStepsInOrderAndThreadsResults(t *testing.T) {
	tools := newTestRegistry("echo", false)
	exec := NewExecutor(tools, nil, logging.New())

	seq := &config.ToolSequenceConfig{
		Steps: []config.StepConfig{
			{Order: 1, ToolID: "echo", Params: map[string]string{"value": "${input.greeting}"}, OnSuccess: "continue"},
			{Order: 2, ToolID: "echo", Params: map[string]string{"value": "${step1.echoed}"}, OnSuccess: "continue"},
		},
	}

	result, err := exec.Run(context.Background(), "seq1", seq, map[string]any{"greeting": "hi"}, "trace-1")
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.True(t, result.Outcomes[0].OK)
	assert.Equal(t, "hi", result.Outcomes[1].Data["echoed"])
}

func TestExecutor_OnErrorStopHaltsSequence(t *testing.T) {
	tools := newTestRegistry("echo", true)
	exec := NewExecutor(tools, nil, logging.New())

	seq := &config.ToolSequenceConfig{
		Steps: []config.StepConfig{
			{Order: 1, ToolID: "echo", Params: map[string]string{"value": "x"}, OnError: "stop"},
			{Order: 2, ToolID: "echo", Params: map[string]string{"value": "y"}, OnError: "stop"},
		},
	}

	result, err := exec.Run(context.Background(), "seq2", seq, map[string]any{}, "trace-2")
	require.NoError(t, err)
	assert.Equal(t, 1, result.StoppedAt)
	assert.Len(t, result.Outcomes, 1)
}

func TestExecutor_OnErrorContinueRunsAllSteps(t *testing.T) {
	tools := newTestRegistry("echo", true)
	exec := NewExecutor(tools, nil, logging.New())

	seq := &config.ToolSequenceConfig{
		Steps: []config.StepConfig{
			{Order: 1, ToolID: "echo", Params: map[string]string{"value": "x"}, OnError: "continue"},
			{Order: 2, ToolID: "echo", Params: map[string]string{"value": "y"}, OnError: "continue"},
		},
	}

	result, err := exec.Run(context.Background(), "seq3", seq, map[string]any{}, "trace-3")
	require.NoError(t, err)
	assert.Equal(t, 0, result.StoppedAt)
	assert.Len(t, result.Outcomes, 2)
}

func TestExecutor_OnSuccessSkipOmitsStepSlot(t *testing.T) {
	tools := newTestRegistry("echo", false)
	exec := NewExecutor(tools, nil, logging.New())

	seq := &config.ToolSequenceConfig{
		Steps: []config.StepConfig{
			{Order: 1, ToolID: "echo", Params: map[string]string{"value": "x"}, OnSuccess: "skip"},
			{Order: 2, ToolID: "echo", Params: map[string]string{"value": "${step1.echoed}"}, OnSuccess: "continue"},
		},
	}

	result, err := exec.Run(context.Background(), "seq4", seq, map[string]any{}, "trace-4")
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.False(t, result.Outcomes[1].OK)
	var tmplErr *TemplateError
	assert.ErrorAs(t, result.Outcomes[1].Err, &tmplErr)
}

func TestExecutor_TemplateErrorOnUnresolvedPlaceholder(t *testing.T) {
	tools := newTestRegistry("echo", false)
	exec := NewExecutor(tools, nil, logging.New())

	seq := &config.ToolSequenceConfig{
		Steps: []config.StepConfig{
			{Order: 1, ToolID: "echo", Params: map[string]string{"value": "${input.missing}"}},
		},
	}

	result, err := exec.Run(context.Background(), "seq5", seq, map[string]any{}, "trace-5")
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.False(t, result.Outcomes[0].OK)
}
