package http

import (
	"context"
	"net/http"
	"time"

	"pokertracker/internal/auth"
	"pokertracker/internal/core"
	"pokertracker/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports 503 until the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				log.NewFields().WithError(err).WithErrorType(log.ErrorTypeDatabase).ToSlice()...)
			ErrorResponse(http.StatusServiceUnavailable, "Not ready", "store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := s.deps.Auth.Register(r.Context(), core.UserInput{
		Email:    p.Get("email"),
		Username: p.Get("username"),
		Password: p.Get("password"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(toAuthResponse(res)).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := s.deps.Auth.Login(r.Context(), p.Get("email"), p.Get("password"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toAuthResponse(res)).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	user, err := s.deps.Auth.Me(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toUserResponse(user)).Write(w)
}

func (s *Server) handleCookieConsent(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	consent, err := p.GetBool("consent")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := s.deps.Auth.UpdateCookieConsent(r.Context(), id, consent)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toUserResponse(user)).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	err := s.deps.Auth.ChangePassword(r.Context(), id, p.Get("current_password"), p.Get("new_password"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
