package httpapi

import (
	"errors"
	"net/http"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

type userView struct {
	Username string  `json:"username"`
	Callsign *string `json:"callsign"`
	IsAdmin  bool    `json:"isAdmin"`
}

func derefCallsign(cs *string) string {
	if cs == nil {
		return ""
	}
	return *cs
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	addr := clientAddr(r)
	if !s.logins.Allow(addr) {
		respondError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Username == "" || body.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.users.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.audits.Record(nil, models.ActionLoginFailed, "", "invalid credentials: "+body.Username, addr)
		}
		s.respondServiceError(r.Context(), w, err)
		return
	}

	token, err := s.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}

	sc := &models.SessionContext{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Callsign: user.Callsign,
		IsAdmin:  user.IsAdmin,
	}
	s.audits.Record(sc, models.ActionLogin, derefCallsign(user.Callsign), "", addr)

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": userView{
			Username: user.Username,
			Callsign: user.Callsign,
			IsAdmin:  user.IsAdmin,
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sc := requireSession(w, r)
	if sc == nil {
		return
	}
	if err := s.sessions.Revoke(r.Context(), sc.Token); err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionLogout, derefCallsign(sc.Callsign), "", clientAddr(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sc := requireSession(w, r)
	if sc == nil {
		return
	}
	respondJSON(w, http.StatusOK, userView{
		Username: sc.Username,
		Callsign: sc.Callsign,
		IsAdmin:  sc.IsAdmin,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sc := requireSession(w, r)
	if sc == nil {
		return
	}

	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.CurrentPassword == "" || body.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "currentPassword and newPassword are required")
		return
	}

	err := s.users.ChangePassword(r.Context(), sc.UserID, body.CurrentPassword, body.NewPassword, sc.Token)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionPasswordChanged, derefCallsign(sc.Callsign), "", clientAddr(r))
	w.WriteHeader(http.StatusNoContent)
}
