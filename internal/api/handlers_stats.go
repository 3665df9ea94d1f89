package api

import (
	"net/http"

	"github.com/dgallion1/eduparse/internal/extract"
)

func (s *Server) handleExtractStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, extract.StatsSnapshot{ByKind: map[string]int{}})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}
