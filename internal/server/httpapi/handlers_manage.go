package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

// ownCallsign returns the callsign the session manages, answering 404 when
// the account has none assigned.
func ownCallsign(w http.ResponseWriter, r *http.Request) (*models.SessionContext, string, bool) {
	sc := requireSession(w, r)
	if sc == nil {
		return nil, "", false
	}
	if sc.Callsign == nil {
		notFound(w)
		return nil, "", false
	}
	return sc, *sc.Callsign, true
}

func (s *Server) handleManageGetCallsign(w http.ResponseWriter, r *http.Request) {
	_, callsign, ok := ownCallsign(w, r)
	if !ok {
		return
	}
	cfg, err := s.callsigns.Get(r.Context(), callsign)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleManageUpdateCallsign(w http.ResponseWriter, r *http.Request) {
	sc, callsign, ok := ownCallsign(w, r)
	if !ok {
		return
	}

	var body struct {
		Name          string                         `json:"name"`
		QRZLink       string                         `json:"qrzLink"`
		TextPositions map[string]models.TextPosition `json:"textPositions"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	cfg, err := s.callsigns.Update(r.Context(), callsign, body.Name, body.QRZLink, body.TextPositions)
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionCallsignUpdated, callsign, "", clientAddr(r))
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sc, callsign, ok := ownCallsign(w, r)
	if !ok {
		return
	}

	kind := r.PathValue("kind")
	if kind != "card" && kind != "background" {
		respondError(w, http.StatusBadRequest, "unknown upload type")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		respondError(w, http.StatusBadRequest, "only image uploads are accepted")
		return
	}

	name := "card.png"
	action := models.ActionCardUploaded
	if kind == "background" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
			ext = ".png"
		}
		name = fmt.Sprintf("backgrounds/bg-%d%s", time.Now().UnixMilli(), ext)
		action = models.ActionBackgroundUploaded
	}

	if err := s.images.Put(r.Context(), callsign, name, file); err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, action, callsign, name, clientAddr(r))
	respondJSON(w, http.StatusCreated, map[string]string{"filename": name})
}

func (s *Server) handleListBackgrounds(w http.ResponseWriter, r *http.Request) {
	_, callsign, ok := ownCallsign(w, r)
	if !ok {
		return
	}
	names, err := s.images.List(r.Context(), callsign, "backgrounds")
	if err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"backgrounds": names})
}

func (s *Server) handleDeleteBackground(w http.ResponseWriter, r *http.Request) {
	sc, callsign, ok := ownCallsign(w, r)
	if !ok {
		return
	}
	filename := r.PathValue("filename")
	if err := s.images.Delete(r.Context(), callsign, "backgrounds/"+filename); err != nil {
		s.respondServiceError(r.Context(), w, err)
		return
	}
	s.audits.Record(sc, models.ActionBackgroundDeleted, callsign, filename, clientAddr(r))
	w.WriteHeader(http.StatusNoContent)
}
