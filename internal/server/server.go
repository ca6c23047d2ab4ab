// Package server implements the core's external interfaces (spec §6):
// the chat request/response envelope, the SSE log stream, health and
// introspection endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/Billhebert/chatIAS-sub000/internal/agent"
	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/orchestrator"
	"github.com/Billhebert/chatIAS-sub000/internal/provider"
	"github.com/Billhebert/chatIAS-sub000/internal/retrieval"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

var tracer = otel.Tracer("chatias-sub000/server")

// Server wires the Chat Orchestrator to an HTTP transport (spec §6).
type Server struct {
	orch     *orchestrator.Orchestrator
	agents   *agent.Registry
	tools    *tool.Registry
	cascade  *provider.Cascade
	pipeline *retrieval.Pipeline
	logger   *logging.Logger
	cfg      *config.Config

	limiter *rate.Limiter
	engine  *gin.Engine
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithRateLimit bounds incoming /chat requests (requests per second,
// burst). The default is unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) { s.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New builds a Server and registers its routes.
func New(
	orch *orchestrator.Orchestrator,
	agents *agent.Registry,
	tools *tool.Registry,
	cascade *provider.Cascade,
	pipeline *retrieval.Pipeline,
	logger *logging.Logger,
	cfg *config.Config,
	opts ...Option,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		orch:     orch,
		agents:   agents,
		tools:    tools,
		cascade:  cascade,
		pipeline: pipeline,
		logger:   logger,
		cfg:      cfg,
		engine:   gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler, for use with http.Server
// or httptest.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.POST("/chat", s.rateLimited(s.handleChat))
	s.engine.GET("/logs/stream", s.handleLogStream)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/tools", s.handleTools)
	s.engine.GET("/agents", s.handleAgents)
	s.engine.GET("/providers", s.handleProviders)
}

func (s *Server) rateLimited(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate limit exceeded"})
			c.Abort()
			return
		}
		next(c)
	}
}

type chatRequestBody struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

type ragHitBody struct {
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type chatResponseBody struct {
	OK         bool         `json:"ok"`
	Text       string       `json:"text"`
	Strategy   string       `json:"strategy"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning"`
	Provider   string       `json:"provider,omitempty"`
	ToolUsed   string       `json:"tool_used,omitempty"`
	AgentUsed  string       `json:"agent_used,omitempty"`
	RAGHits    []ragHitBody `json:"rag_hits,omitempty"`
	DurationMs int64        `json:"duration_ms"`
	TraceID    string       `json:"trace_id"`
	Error      *errorBody   `json:"error,omitempty"`
}

func toResponseBody(resp *orchestrator.ChatResponse) chatResponseBody {
	hits := make([]ragHitBody, 0, len(resp.RAGHits))
	for _, h := range resp.RAGHits {
		hits = append(hits, ragHitBody{Score: h.Score, Snippet: h.Snippet})
	}
	var errBody *errorBody
	if resp.Error != nil {
		errBody = &errorBody{Kind: resp.Error.Kind, Message: resp.Error.Message}
	}
	return chatResponseBody{
		OK:         resp.OK,
		Text:       resp.Text,
		Strategy:   string(resp.Strategy),
		Confidence: resp.Confidence,
		Reasoning:  resp.Reasoning,
		Provider:   resp.Provider,
		ToolUsed:   resp.ToolUsed,
		AgentUsed:  resp.AgentUsed,
		RAGHits:    hits,
		DurationMs: resp.DurationMs,
		TraceID:    resp.TraceID,
		Error:      errBody,
	}
}

// handleChat implements POST /chat (spec §6 request/response envelope).
func (s *Server) handleChat(c *gin.Context) {
	var body chatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if len(body.Message) > orchestrator.MaxMessageBytes {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "message exceeds the maximum allowed length"})
		return
	}

	ctx, span := tracer.Start(c.Request.Context(), "chat.handle", trace.WithAttributes())
	defer span.End()

	resp := s.orch.Handle(ctx, orchestrator.ChatRequest{
		MessageText: body.Message,
		SessionID:   body.SessionID,
	})

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusOK // spec §6: failures are still a normal envelope with ok=false
	}
	c.JSON(status, toResponseBody(resp))
}

// handleLogStream implements GET /logs/stream (spec §6 SSE log stream).
func (s *Server) handleLogStream(c *gin.Context) {
	ch, cancel := s.logger.Subscribe(64)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", gin.H{"type": "connected"})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("message", gin.H{"type": "log", "log": entry})
			c.Writer.Flush()
		}
	}
}

type healthBody struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components"`
}

// handleHealth implements GET /health (spec §6).
func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"

	breakers := s.cascade.Statuses()
	for _, b := range breakers {
		if b.State == provider.StateOpen {
			status = "degraded"
		}
	}

	vectorStore := gin.H{"configured": s.pipeline != nil}
	if s.pipeline != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		info, err := s.pipeline.StoreInfo(ctx)
		if err != nil {
			status = "degraded"
			vectorStore["reachable"] = false
			vectorStore["error"] = err.Error()
		} else {
			vectorStore["reachable"] = true
			vectorStore["count"] = info.Count
			vectorStore["dim"] = info.Dim
		}
	}

	c.JSON(http.StatusOK, healthBody{
		Status: status,
		Components: map[string]any{
			"provider_cascade": breakers,
			"vector_store":     vectorStore,
			"config":           gin.H{"version": s.cfg.System.Version},
		},
	})
}

// handleTools implements GET /tools (spec §6 introspection).
func (s *Server) handleTools(c *gin.Context) {
	out := make([]gin.H, 0, s.tools.Size())
	for _, inst := range s.tools.List() {
		out = append(out, gin.H{
			"id":       inst.Config.ID,
			"category": inst.Config.Category,
			"enabled":  config.EnabledOrDefault(inst.Config.Enabled),
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

// handleAgents implements GET /agents (spec §6 introspection).
func (s *Server) handleAgents(c *gin.Context) {
	out := make([]gin.H, 0, s.agents.Size())
	for _, inst := range s.agents.List() {
		metrics := inst.Snapshot()
		out = append(out, gin.H{
			"id":          inst.Config.ID,
			"class":       inst.Config.Class,
			"description": inst.Config.Description,
			"enabled":     config.EnabledOrDefault(inst.Config.Enabled),
			"metrics": gin.H{
				"total":                metrics.Total,
				"successful":           metrics.Successful,
				"failed":               metrics.Failed,
				"average_duration_ms":  metrics.AverageDurationMs,
				"last_duration_ms":     metrics.LastDurationMs,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}

// handleProviders implements GET /providers (spec §6 introspection).
func (s *Server) handleProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.cascade.Statuses()})
}
