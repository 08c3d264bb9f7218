package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

type adminUserView struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Callsign    *string    `json:"callsign"`
	IsAdmin     bool       `json:"isAdmin"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

func toAdminUserView(u *models.User) adminUserView {
	return adminUserView{
		ID:          u.ID,
		Username:    u.Username,
		Callsign:    u.Callsign,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	views := make([]adminUserView, 0, len(users))
	for _, u := range users {
		views = append(views, toAdminUserView(u))
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	sc := requireAdmin(w, r)
	if sc == nil {
		return
	}

	var body struct {
		Username string  `json:"username"`
		Password string  `json:"password"`
		Callsign *string `json:"callsign"`
		IsAdmin  bool    `json:"isAdmin"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Username == "" || body.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.users.CreateUser(r.Context(), body.Username, body.Password, body.Callsign, body.IsAdmin)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionUserCreated, derefCallsign(user.Callsign), user.Username, clientAddr(r))
	respondJSON(w, http.StatusCreated, toAdminUserView(user))
}

// handleAdminUpdateUser applies only the fields present in the body: a
// password reset, a callsign (null clears it), or the admin flag.
func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	sc := requireAdmin(w, r)
	if sc == nil {
		return
	}
	id := r.PathValue("id")

	var body struct {
		Password *string         `json:"password"`
		Callsign json.RawMessage `json:"callsign"`
		IsAdmin  *bool           `json:"isAdmin"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	var changed []string

	if body.Password != nil {
		if err := s.users.SetPassword(r.Context(), id, *body.Password); err != nil {
			s.respondServiceError(r.Context(), w, err)
			return
		}
		changed = append(changed, "password")
	}
	if body.Callsign != nil {
		var callsign *string
		if err := json.Unmarshal(body.Callsign, &callsign); err != nil {
			respondError(w, http.StatusBadRequest, "malformed callsign")
			return
		}
		if err := s.users.UpdateCallsign(r.Context(), id, callsign); err != nil {
			s.respondServiceError(r.Context(), w, err)
			return
		}
		changed = append(changed, "callsign")
	}
	if body.IsAdmin != nil {
		if err := s.users.SetAdmin(r.Context(), id, *body.IsAdmin); err != nil {
			s.respondServiceError(r.Context(), w, err)
			return
		}
		changed = append(changed, "admin")
	}

	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	if len(changed) > 0 {
		s.audits.Record(sc, models.ActionUserUpdated, derefCallsign(user.Callsign),
			user.Username+": "+strings.Join(changed, ", "), clientAddr(r))
	}
	respondJSON(w, http.StatusOK, toAdminUserView(user))
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	sc := requireAdmin(w, r)
	if sc == nil {
		return
	}
	id := r.PathValue("id")

	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	if err := s.users.DeleteUser(r.Context(), id); err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionUserDeleted, derefCallsign(user.Callsign), user.Username, clientAddr(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminListCallsigns(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}
	configs, err := s.callsigns.All(r.Context())
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	if configs == nil {
		configs = []*models.CallsignConfig{}
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleAdminCreateCallsign(w http.ResponseWriter, r *http.Request) {
	sc := requireAdmin(w, r)
	if sc == nil {
		return
	}

	var body struct {
		ID            string                         `json:"id"`
		Name          string                         `json:"name"`
		QRZLink       string                         `json:"qrzLink"`
		TextPositions map[string]models.TextPosition `json:"textPositions"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	cfg, err := s.callsigns.Create(r.Context(), &models.CallsignConfig{
		ID:            body.ID,
		Name:          body.Name,
		QRZLink:       body.QRZLink,
		TextPositions: body.TextPositions,
	})
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionCallsignCreated, cfg.ID, "", clientAddr(r))
	respondJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleAdminUpdateCallsign(w http.ResponseWriter, r *http.Request) {
	sc := requireAdmin(w, r)
	if sc == nil {
		return
	}
	id := r.PathValue("id")

	var body struct {
		Name          string                         `json:"name"`
		QRZLink       string                         `json:"qrzLink"`
		TextPositions map[string]models.TextPosition `json:"textPositions"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	cfg, err := s.callsigns.Update(r.Context(), id, body.Name, body.QRZLink, body.TextPositions)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionCallsignUpdated, cfg.ID, "", clientAddr(r))
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleAdminDeleteCallsign(w http.ResponseWriter, r *http.Request) {
	sc := requireAdmin(w, r)
	if sc == nil {
		return
	}
	id := r.PathValue("id")
	if err := s.callsigns.Delete(r.Context(), id); err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionCallsignDeleted, strings.ToLower(id), "", clientAddr(r))
	w.WriteHeader(http.StatusNoContent)
}

type auditView struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	UserID        *string   `json:"userId"`
	Username      *string   `json:"username"`
	Callsign      *string   `json:"callsign"`
	Action        string    `json:"action"`
	Details       string    `json:"details"`
	SourceAddress string    `json:"sourceAddress"`
}

func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := s.audits.ListRecent(r.Context(), limit)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	views := make([]auditView, 0, len(entries))
	for _, e := range entries {
		views = append(views, auditView{
			ID:            e.ID,
			Timestamp:     e.Timestamp,
			UserID:        e.UserID,
			Username:      e.Username,
			Callsign:      e.Callsign,
			Action:        e.Action,
			Details:       e.Details,
			SourceAddress: e.SourceAddr,
		})
	}
	respondJSON(w, http.StatusOK, views)
}
