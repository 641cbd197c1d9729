package http

import (
	"net/http"

	"pokertracker/internal/auth"
	"pokertracker/internal/stats"
)

// handleStats returns totals and the cumulative series for one chart range.
// An unknown range selects all sessions.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	rng := stats.ParseChartRange(queryParam(r, "range"))
	report, err := s.deps.Stats.Report(r.Context(), id, rng)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toStatsResponse(report)).Write(w)
}
