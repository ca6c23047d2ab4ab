package orchestrator

import (
	"fmt"
	"sync"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// ErrSessionBusy is returned when a session already has an in-flight
// request and history.per_session_concurrency is "reject" (spec §5:
// "ConversationHistory updates for a single session are serialized").
var ErrSessionBusy = fmt.Errorf("a request for this session is already in flight")

type session struct {
	mu     sync.Mutex
	turns  []Turn
}

// HistoryStore holds per-session ConversationHistory, serializing access
// to each session per configuration (spec §5).
type HistoryStore struct {
	maxTurns    int
	reject      bool
	mu          sync.Mutex
	sessions    map[string]*session
}

// NewHistoryStore builds a HistoryStore from HistoryConfig.
func NewHistoryStore(cfg config.HistoryConfig) *HistoryStore {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &HistoryStore{
		maxTurns: maxTurns,
		reject:   cfg.PerSessionConcurrency == "reject",
		sessions: make(map[string]*session),
	}
}

func (h *HistoryStore) sessionFor(id string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		s = &session{}
		h.sessions[id] = s
	}
	return s
}

// Acquire serializes access to sessionID's history: it blocks (queues)
// until the previous request for this session finishes, unless the store
// is configured to reject concurrent access, in which case it returns
// ErrSessionBusy immediately. The returned release func must always be
// called when non-nil.
func (h *HistoryStore) Acquire(sessionID string) (func(), error) {
	if sessionID == "" {
		return func() {}, nil
	}
	s := h.sessionFor(sessionID)
	if h.reject {
		if !s.mu.TryLock() {
			return nil, ErrSessionBusy
		}
		return s.mu.Unlock, nil
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

// Turns returns a copy of sessionID's history, most recent last.
func (h *HistoryStore) Turns(sessionID string) []Turn {
	if sessionID == "" {
		return nil
	}
	s := h.sessionFor(sessionID)
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Append records a turn, trimming to maxTurns. Caller must hold the
// session's lock (via Acquire) before calling.
func (h *HistoryStore) Append(sessionID string, turn Turn) {
	if sessionID == "" {
		return
	}
	s := h.sessionFor(sessionID)
	s.turns = append(s.turns, turn)
	if len(s.turns) > h.maxTurns {
		s.turns = s.turns[len(s.turns)-h.maxTurns:]
	}
}

// Clear empties sessionID's history (spec §4.7 "/clear" command).
func (h *HistoryStore) Clear(sessionID string) {
	if sessionID == "" {
		return
	}
	s := h.sessionFor(sessionID)
	s.turns = nil
}
