package config

// SetDefaults fills in the values spec §4.1 step 6 calls out explicitly
// (e.g. missing retry.max_retries defaults to 2) plus the rest of the
// document's sensible defaults. Mirrors the teacher's per-section
// SetDefaults convention (one method per config struct, composed here).
func (c *Config) SetDefaults() {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	if c.KnowledgeBases == nil {
		c.KnowledgeBases = make(map[string]*KnowledgeBaseConfig)
	}
	if c.Tools == nil {
		c.Tools = make(map[string]*ToolConfig)
	}
	if c.Agents == nil {
		c.Agents = make(map[string]*AgentConfig)
	}
	if c.ToolSequences == nil {
		c.ToolSequences = make(map[string]*ToolSequenceConfig)
	}

	for id, p := range c.Providers {
		p.ID = id
		p.SetDefaults()
	}
	for id, kb := range c.KnowledgeBases {
		kb.ID = id
		kb.SetDefaults()
	}
	for id, t := range c.Tools {
		t.ID = id
	}
	for id, a := range c.Agents {
		a.ID = id
	}
	for id, s := range c.ToolSequences {
		s.ID = id
		s.SetDefaults()
	}

	c.Decision.SetDefaults()
	c.History.SetDefaults()
	c.Retrieval.SetDefaults()
	c.Logging.SetDefaults()
}

func (p *ProviderConfig) SetDefaults() {
	if p.Type == "" {
		p.Type = "cloud"
	}
	if p.TimeoutMs <= 0 {
		p.TimeoutMs = 15000
	}
	if p.CircuitBreaker.FailureThreshold <= 0 {
		p.CircuitBreaker.FailureThreshold = 5
	}
	if p.CircuitBreaker.SuccessThreshold <= 0 {
		p.CircuitBreaker.SuccessThreshold = 2
	}
	if p.CircuitBreaker.OpenTimeoutMs <= 0 {
		p.CircuitBreaker.OpenTimeoutMs = 30000
	}
}

func (kb *KnowledgeBaseConfig) SetDefaults() {
	if kb.TopK <= 0 {
		kb.TopK = 5
	}
	if kb.ScoreThreshold <= 0 {
		kb.ScoreThreshold = 0.7
	}
	if kb.DistanceMetric == "" {
		kb.DistanceMetric = "cosine"
	}
}

func (s *ToolSequenceConfig) SetDefaults() {
	if s.ErrorStrategy == "" {
		s.ErrorStrategy = "fail_fast"
	}
	if s.Retry.Enabled && s.Retry.MaxRetries <= 0 {
		s.Retry.MaxRetries = 2
	}
	if s.Retry.BackoffMs <= 0 {
		s.Retry.BackoffMs = 500
	}
}

func (d *DecisionConfig) SetDefaults() {
	if d.ConfidenceThreshold <= 0 {
		d.ConfidenceThreshold = 0.7
	}
	if d.DecisionCacheTTLSecs <= 0 {
		d.DecisionCacheTTLSecs = 60
	}
	if d.DecisionCacheSize <= 0 {
		d.DecisionCacheSize = 256
	}
}

func (h *HistoryConfig) SetDefaults() {
	if h.MaxTurns <= 0 {
		h.MaxTurns = 20
	}
	if h.PerSessionConcurrency == "" {
		h.PerSessionConcurrency = "queue"
	}
}

func (r *RetrievalConfig) SetDefaults() {
	if r.DefaultTopK <= 0 {
		r.DefaultTopK = 5
	}
	if r.ScoreThreshold <= 0 {
		r.ScoreThreshold = 0.7
	}
	if r.EmbeddingCacheSize <= 0 {
		r.EmbeddingCacheSize = 512
	}
	if r.ContextBudgetTokens <= 0 {
		r.ContextBudgetTokens = 1500
	}
	if r.RAGDegradeToLLM == nil {
		t := true
		r.RAGDegradeToLLM = &t
	}
}

func (l *LoggingConfig) SetDefaults() {
	if l.RingSize <= 0 {
		l.RingSize = 10000
	}
	if l.LevelFilter == "" {
		l.LevelFilter = "debug"
	}
	if l.ConsoleColorize == nil {
		t := true
		l.ConsoleColorize = &t
	}
}
