// Package logging implements the core's ring-buffered, categorized event
// log (component C3) plus per-component metrics counters.
package logging

import "time"

// Level is the severity of a LogEntry.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Category is the closed set of subsystems a LogEntry can originate from.
type Category string

const (
	CategorySystem   Category = "system"
	CategoryConfig   Category = "config"
	CategoryDecision Category = "decision"
	CategoryLLM      Category = "llm"
	CategoryRAG      Category = "rag"
	CategoryAgent    Category = "agent"
	CategoryTool     Category = "tool"
	CategoryProvider Category = "provider"
	CategoryCircuit  Category = "circuit"
	CategoryRequest  Category = "request"
	CategoryResponse Category = "response"
)

// validCategories is the closed set enforced by Entry construction.
var validCategories = map[Category]bool{
	CategorySystem: true, CategoryConfig: true, CategoryDecision: true,
	CategoryLLM: true, CategoryRAG: true, CategoryAgent: true,
	CategoryTool: true, CategoryProvider: true, CategoryCircuit: true,
	CategoryRequest: true, CategoryResponse: true,
}

// IsValidCategory reports whether c belongs to the closed category set.
func IsValidCategory(c Category) bool {
	return validCategories[c]
}

// Entry is a single structured log record threaded through the core.
// Ordering per TraceID is monotonic: Logger.Log assigns Seq under lock so
// readers can sort/filter without racing the writer.
type Entry struct {
	Seq         uint64         `json:"seq"`
	TimestampMs int64          `json:"timestamp_ms"`
	Level       Level          `json:"level"`
	Category    Category       `json:"category"`
	Message     string         `json:"message"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	TraceID     string         `json:"trace_id,omitempty"`
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
