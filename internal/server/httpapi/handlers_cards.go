package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
	"github.com/achildrenmile/qslcardgenerator/internal/server/auth"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
	"github.com/achildrenmile/qslcardgenerator/internal/server/storage"
)

// handlePublicCallsigns lists {id, name} pairs for the landing page. No
// authentication: the list only exposes what the card pages show anyway.
func (s *Server) handlePublicCallsigns(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.callsigns.List(r.Context())
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// guardCallsign checks the ownership rule for a callsign-scoped resource.
// A denial is answered as 404 so an unauthorized caller cannot tell an
// existing callsign from a missing one.
func (s *Server) guardCallsign(w http.ResponseWriter, r *http.Request) (*models.SessionContext, string, bool) {
	sc := requireSession(w, r)
	if sc == nil {
		return nil, "", false
	}
	callsign := r.PathValue("callsign")
	if auth.Decide(sc, callsign) == auth.Deny {
		notFound(w)
		return sc, callsign, false
	}
	return sc, callsign, true
}

// handleGeneratorConfig serves the config the generator page draws from.
// Both outcomes of the access decision are audited.
func (s *Server) handleGeneratorConfig(w http.ResponseWriter, r *http.Request) {
	sc := requireSession(w, r)
	if sc == nil {
		return
	}
	callsign := r.PathValue("callsign")
	if auth.Decide(sc, callsign) == auth.Deny {
		s.audits.Record(sc, models.ActionGeneratorAccessDenied, callsign, "", clientAddr(r))
		notFound(w)
		return
	}

	cfg, err := s.callsigns.Get(r.Context(), callsign)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionGeneratorAccessGranted, callsign, "", clientAddr(r))
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCardGenerated(w http.ResponseWriter, r *http.Request) {
	sc, callsign, ok := s.guardCallsign(w, r)
	if !ok {
		return
	}
	s.audits.Record(sc, models.ActionCardGenerated, callsign, "", clientAddr(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCardImage(w http.ResponseWriter, r *http.Request) {
	s.serveImage(w, r, "card.png")
}

func (s *Server) handleBackgroundImage(w http.ResponseWriter, r *http.Request) {
	s.serveImage(w, r, "backgrounds/"+r.PathValue("filename"))
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request, name string) {
	_, callsign, ok := s.guardCallsign(w, r)
	if !ok {
		return
	}

	rc, err := s.images.Get(r.Context(), callsign, name)
	if err != nil {
		// A malformed filename is answered exactly like a missing one.
		if errors.Is(err, storage.ErrBadName) || errors.Is(err, common.ErrNotFound) {
			notFound(w)
			return
		}
		s.respondServiceError(r.Context(), w, err)
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error(r.Context(), "failed to stream image", "callsign", callsign, "name", name, "error", err)
	}
}
