package handoff

import (
	"sync"
	"time"

	"github.com/BaSui01/tripflow/types"
)

// history is the per-session append-only handoff trail, capped at limit
// records per session when limit > 0.
type history struct {
	mu       sync.RWMutex
	limit    int
	sessions map[string][]Record
}

func newHistory(limit int) *history {
	return &history{limit: limit, sessions: make(map[string][]Record)}
}

func (h *history) append(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	recs := append(h.sessions[r.SessionID], r)
	if h.limit > 0 && len(recs) > h.limit {
		// copy so the dropped prefix can be collected
		recs = append([]Record(nil), recs[len(recs)-h.limit:]...)
	}
	h.sessions[r.SessionID] = recs
}

// sweep drops sessions whose newest record is before cutoff.
func (h *history) sweep(cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, recs := range h.sessions {
		if len(recs) == 0 || recs[len(recs)-1].Timestamp.Before(cutoff) {
			delete(h.sessions, id)
			n++
		}
	}
	return n
}

func (h *history) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// current is the agent that handled the session's last dispatch.
func (h *history) current(sessionID string) types.AgentID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	recs := h.sessions[sessionID]
	if len(recs) == 0 {
		return types.AgentGeneral
	}
	return recs[len(recs)-1].ToAgent
}

func (h *history) list(sessionID string) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	recs := h.sessions[sessionID]
	out := make([]Record, len(recs))
	for i, r := range recs {
		r.CarriedState.Observations = append([]string(nil), r.CarriedState.Observations...)
		out[i] = r
	}
	return out
}
