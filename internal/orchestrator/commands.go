package orchestrator

import "strings"

// handleCommand executes a "/"-prefixed message synchronously, never
// reaching C4/C5/C6 (spec §4.7 "Special command pattern"). ok reports
// whether message was in fact a recognized command.
func (o *Orchestrator) handleCommand(req ChatRequest) (*ChatResponse, bool) {
	if !strings.HasPrefix(req.MessageText, "/") {
		return nil, false
	}

	fields := strings.Fields(req.MessageText)
	cmd := fields[0]

	switch cmd {
	case "/clear":
		o.history.Clear(req.SessionID)
		return &ChatResponse{
			OK:         true,
			Text:       "Conversation history cleared.",
			Strategy:   StrategyCommand,
			Confidence: 1.0,
			Reasoning:  "command",
			TraceID:    req.TraceID,
		}, true
	default:
		return &ChatResponse{
			OK:         false,
			Text:       "Unknown command: " + cmd,
			Strategy:   StrategyCommand,
			Confidence: 1.0,
			Reasoning:  "command",
			TraceID:    req.TraceID,
			Error:      &ErrorDetail{Kind: "unknown_command", Message: cmd},
		}, true
	}
}
