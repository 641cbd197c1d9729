package http

import (
	"bytes"
	"net/http"
	"strconv"

	"pokertracker/internal/auth"
	"pokertracker/internal/export"
	"pokertracker/internal/log"
	"pokertracker/internal/stats"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	sessions, err := s.deps.Sessions.List(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	NewJSONResponse().JSON(out).Write(w)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	input, err := ParseSessionCreate(NewRequestBodyParser(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := s.deps.Sessions.Create(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/sessions/"+created.ID.String()).
		JSON(toSessionResponse(created)).
		Write(w)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	sessionID, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), id, sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toSessionResponse(sess)).Write(w)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	sessionID, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	update, err := ParseSessionUpdate(NewRequestBodyParser(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := s.deps.Sessions.Update(r.Context(), id, sessionID, update)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toSessionResponse(updated)).Write(w)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	sessionID, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.deps.Sessions.Delete(r.Context(), id, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleExportSessions streams the filtered sessions as a file, oldest first.
// Unknown ranges export everything and unknown formats fall back to CSV.
func (s *Server) handleExportSessions(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	rng := stats.ParseExportRange(queryParam(r, "time_range"))
	format := export.ParseFormat(queryParam(r, "format"))

	sessions, err := s.deps.Stats.Export(r.Context(), id, rng)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, sessions); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Sessions exported",
		log.FieldOperation, log.OpExport,
		log.FieldRange, string(rng),
		log.FieldFormat, string(format),
		log.FieldCount, len(sessions))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(string(rng), format)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
