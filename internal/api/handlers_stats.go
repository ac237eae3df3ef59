package api

import (
	"net/http"
)

func (s *Server) handleImportStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth":     s.orchestrator.QueueDepth(),
		"active_sessions": s.orchestrator.Sessions().Len(),
		"latency":         s.orchestrator.Stats().Snapshot(),
	})
}
