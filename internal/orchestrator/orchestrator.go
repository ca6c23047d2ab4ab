package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Billhebert/chatIAS-sub000/internal/agent"
	"github.com/Billhebert/chatIAS-sub000/internal/decision"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
	"github.com/Billhebert/chatIAS-sub000/internal/retrieval"
	"github.com/Billhebert/chatIAS-sub000/internal/sequence"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

// MaxMessageBytes bounds the request envelope's message field (spec §6).
const MaxMessageBytes = 8 * 1024

// DefaultRequestTimeout is the per-request wall-clock deadline when none
// is configured (spec §5: "per-request wall clock (default 60 s)").
const DefaultRequestTimeout = 60 * time.Second

// Orchestrator owns the full request lifecycle of spec §4.7: it wires
// together the Decision Engine, the Provider Cascade, the Tool Sequence
// Executor, the Retrieval Subsystem, and the agent registry.
type Orchestrator struct {
	agents         *agent.Registry
	tools          *tool.Registry
	cascade        *provider.Cascade
	executor       *sequence.Executor
	engine         *decision.Engine
	pipeline       *retrieval.Pipeline // default knowledge base, nil if none configured
	history        *HistoryStore
	logger         *logging.Logger
	requestTimeout time.Duration
}

// New builds an Orchestrator from its already-constructed dependencies.
// pipeline may be nil when no knowledge base is configured, in which case
// every rag-classified request is answered through the llm path.
func New(
	agents *agent.Registry,
	tools *tool.Registry,
	cascade *provider.Cascade,
	executor *sequence.Executor,
	engine *decision.Engine,
	pipeline *retrieval.Pipeline,
	history *HistoryStore,
	logger *logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		agents:         agents,
		tools:          tools,
		cascade:        cascade,
		executor:       executor,
		engine:         engine,
		pipeline:       pipeline,
		history:        history,
		logger:         logger,
		requestTimeout: DefaultRequestTimeout,
	}
}

// Handle runs a ChatRequest through received -> decided -> dispatching ->
// awaiting_component -> formatting -> responded (spec §4.7 state machine).
// It never returns an error: every failure is converted to a ChatResponse
// with ok=false (spec §4.7 "Failure semantics").
func (o *Orchestrator) Handle(ctx context.Context, req ChatRequest) *ChatResponse {
	start := time.Now()
	if req.TraceID == "" {
		req.TraceID = uuid.NewString()
	}

	if len(req.MessageText) > MaxMessageBytes {
		return o.errorResponse(req.TraceID, start, "validation_error", "message exceeds the maximum allowed length",
			"Sorry, that message is too long.")
	}

	if resp, ok := o.handleCommand(req); ok {
		resp.DurationMs = time.Since(start).Milliseconds()
		return resp
	}

	release, err := o.history.Acquire(req.SessionID)
	if err != nil {
		return o.errorResponse(req.TraceID, start, "session_busy", err.Error(),
			"Sorry, a previous request for this session is still being processed.")
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, o.requestTimeout)
	defer cancel()

	resp := o.dispatch(ctx, req, start)
	resp.DurationMs = time.Since(start).Milliseconds()

	o.history.Append(req.SessionID, Turn{Role: "user", Content: req.MessageText, Timestamp: start.UnixMilli(), Intent: string(resp.Strategy)})
	o.history.Append(req.SessionID, Turn{Role: "assistant", Content: resp.Text, Timestamp: time.Now().UnixMilli(), Intent: string(resp.Strategy), Provider: resp.Provider})

	return resp
}

// dispatch runs decide+route, recovering from any panic raised along the
// way so the orchestrator itself never crashes the process (spec §4.7,
// §7 "the outermost orchestrator never panics the process").
func (o *Orchestrator) dispatch(ctx context.Context, req ChatRequest, start time.Time) (resp *ChatResponse) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Log(logging.LevelError, logging.CategoryResponse, req.TraceID, "panic recovered in dispatch",
				map[string]any{"panic": fmt.Sprintf("%v", r)})
			resp = o.errorResponse(req.TraceID, start, "internal_panic", fmt.Sprintf("%v", r),
				"Sorry, an internal error occurred.")
		}
	}()

	d := o.engine.Classify(ctx, req.MessageText, req.TraceID)
	o.logger.Log(logging.LevelInfo, logging.CategoryDecision, req.TraceID, "decision made",
		map[string]any{"strategy": d.Strategy, "confidence": d.Confidence})

	history := o.historyAsMessages(req.SessionID)

	switch d.Strategy {
	case decision.StrategyTool:
		return o.dispatchTool(ctx, req, d)
	case decision.StrategyAgent:
		return o.dispatchAgent(ctx, req, d)
	case decision.StrategyRAG:
		return o.dispatchRAG(ctx, req, d, history)
	default:
		return o.dispatchLLM(ctx, req, d, history)
	}
}

func (o *Orchestrator) historyAsMessages(sessionID string) []provider.Message {
	turns := o.history.Turns(sessionID)
	out := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, provider.Message{Role: t.Role, Content: t.Content})
	}
	return out
}

func (o *Orchestrator) dispatchTool(ctx context.Context, req ChatRequest, d *decision.Decision) *ChatResponse {
	action, _ := d.ExtractedParams["action"].(string)
	result, err := o.tools.Execute(ctx, d.SuggestedToolID, action, d.ExtractedParams)
	if err != nil {
		return &ChatResponse{
			OK: false, Strategy: StrategyError, TraceID: req.TraceID,
			Text:  "Sorry, an internal error occurred.",
			Error: &ErrorDetail{Kind: "tool_error", Message: err.Error()},
		}
	}
	var errDetail *ErrorDetail
	if !result.OK {
		msg := "tool reported a failure"
		if result.Error != nil {
			msg = result.Error.Error()
		}
		errDetail = &ErrorDetail{Kind: "tool_error", Message: msg}
	}
	return &ChatResponse{
		OK:         result.OK,
		Text:       formatToolResult(d.SuggestedToolID, result),
		Strategy:   StrategyTool,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		ToolUsed:   d.SuggestedToolID,
		TraceID:    req.TraceID,
		Error:      errDetail,
	}
}

func (o *Orchestrator) dispatchAgent(ctx context.Context, req ChatRequest, d *decision.Decision) *ChatResponse {
	execCtx := agent.ExecContext{Context: ctx, TraceID: req.TraceID, Params: d.ExtractedParams}
	result, err := o.agents.Execute(execCtx, d.SuggestedAgentID, req.MessageText)
	if err != nil {
		var denied *agent.PermissionDeniedError
		if errors.As(err, &denied) {
			return &ChatResponse{
				OK: false, Strategy: StrategyError, TraceID: req.TraceID,
				Text:  "Sorry, that action is not permitted.",
				Error: &ErrorDetail{Kind: "permission_denied", Message: err.Error()},
			}
		}
		return &ChatResponse{
			OK: false, Strategy: StrategyError, TraceID: req.TraceID,
			Text:  "Sorry, an internal error occurred.",
			Error: &ErrorDetail{Kind: "agent_error", Message: err.Error()},
		}
	}
	return &ChatResponse{
		OK:         true,
		Text:       result.Text,
		Strategy:   StrategyAgent,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		AgentUsed:  d.SuggestedAgentID,
		ToolUsed:   result.ToolUsed,
		TraceID:    req.TraceID,
	}
}

func (o *Orchestrator) dispatchRAG(ctx context.Context, req ChatRequest, d *decision.Decision, history []provider.Message) *ChatResponse {
	if o.pipeline == nil {
		return o.dispatchLLM(ctx, req, d, history)
	}

	result, hits, err := o.pipeline.Answer(ctx, req.MessageText, history, req.TraceID)
	if errors.Is(err, retrieval.ErrNoRelevantContext) {
		if o.pipeline.DegradeToLLM() {
			return o.dispatchLLM(ctx, req, d, history)
		}
		return &ChatResponse{
			OK:         true,
			Text:       "I don't have relevant knowledge to answer that.",
			Strategy:   StrategyRAG,
			Confidence: d.Confidence,
			Reasoning:  "no_relevant_context",
			TraceID:    req.TraceID,
		}
	}
	if err != nil {
		return &ChatResponse{
			OK: false, Strategy: StrategyError, TraceID: req.TraceID,
			Text:  "Sorry, an internal error occurred.",
			Error: &ErrorDetail{Kind: "retrieval_error", Message: err.Error()},
		}
	}

	ragHits := make([]RAGHit, 0, len(hits))
	for _, h := range hits {
		ragHits = append(ragHits, RAGHit{Score: h.Score, Snippet: h.Text})
	}

	return &ChatResponse{
		OK:         true,
		Text:       result.Text,
		Strategy:   StrategyRAG,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		Provider:   result.Provider,
		RAGHits:    ragHits,
		TraceID:    req.TraceID,
	}
}

func (o *Orchestrator) dispatchLLM(ctx context.Context, req ChatRequest, d *decision.Decision, history []provider.Message) *ChatResponse {
	messages := append(append([]provider.Message{}, history...), provider.Message{Role: "user", Content: req.MessageText})
	result, err := o.cascade.Complete(ctx, &provider.CompletionRequest{Messages: messages}, req.TraceID)
	if err != nil {
		var exhausted *provider.AllProvidersExhaustedError
		if errors.As(err, &exhausted) {
			return &ChatResponse{
				OK: false, Strategy: StrategyError, TraceID: req.TraceID,
				Text:  "Sorry, an internal error occurred.",
				Error: &ErrorDetail{Kind: "providers_exhausted", Message: err.Error()},
			}
		}
		return &ChatResponse{
			OK: false, Strategy: StrategyError, TraceID: req.TraceID,
			Text:  "Sorry, an internal error occurred.",
			Error: &ErrorDetail{Kind: "provider_error", Message: err.Error()},
		}
	}
	return &ChatResponse{
		OK:         true,
		Text:       result.Text,
		Strategy:   StrategyLLM,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		Provider:   result.Provider,
		TraceID:    req.TraceID,
	}
}

func (o *Orchestrator) errorResponse(traceID string, start time.Time, kind, detail, userText string) *ChatResponse {
	o.logger.Log(logging.LevelError, logging.CategoryResponse, traceID, "request failed",
		map[string]any{"kind": kind, "detail": detail})
	return &ChatResponse{
		OK:         false,
		Text:       userText,
		Strategy:   StrategyError,
		TraceID:    traceID,
		DurationMs: time.Since(start).Milliseconds(),
		Error:      &ErrorDetail{Kind: kind, Message: detail},
	}
}
