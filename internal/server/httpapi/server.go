// Package httpapi implements the REST surface of the QSL card generator:
// authentication, self-service callsign management, protected card/background
// fetches, and the admin namespace.
package httpapi

import (
	"net/http"
	"os"

	"github.com/achildrenmile/qslcardgenerator/internal/logging"
	"github.com/achildrenmile/qslcardgenerator/internal/server/callsigns"
	"github.com/achildrenmile/qslcardgenerator/internal/server/config"
	"github.com/achildrenmile/qslcardgenerator/internal/server/services"
	"github.com/achildrenmile/qslcardgenerator/internal/server/storage"
)

type Server struct {
	cfg       *config.Config
	logger    logging.Logger
	users     *services.UserService
	sessions  *services.SessionService
	audits    *services.AuditService
	callsigns *callsigns.Store
	images    storage.ImageStore
	logins    *loginLimiter
}

func NewServer(
	cfg *config.Config,
	logger logging.Logger,
	users *services.UserService,
	sessions *services.SessionService,
	audits *services.AuditService,
	store *callsigns.Store,
	images storage.ImageStore,
) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		users:     users,
		sessions:  sessions,
		audits:    audits,
		callsigns: store,
		images:    images,
		logins:    newLoginLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow),
	}
}

// Handler builds the full route table wrapped in the auth and logging
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)
	mux.HandleFunc("POST /api/auth/change-password", s.handleChangePassword)

	mux.HandleFunc("GET /api/manage/callsign", s.handleManageGetCallsign)
	mux.HandleFunc("PUT /api/manage/callsign", s.handleManageUpdateCallsign)
	mux.HandleFunc("POST /api/manage/upload/{kind}", s.handleUpload)
	mux.HandleFunc("GET /api/manage/backgrounds", s.handleListBackgrounds)
	mux.HandleFunc("DELETE /api/manage/backgrounds/{filename}", s.handleDeleteBackground)

	mux.HandleFunc("GET /api/callsigns", s.handlePublicCallsigns)
	mux.HandleFunc("GET /api/callsigns/{callsign}", s.handleGeneratorConfig)
	mux.HandleFunc("GET /api/cards/{callsign}/card.png", s.handleCardImage)
	mux.HandleFunc("GET /api/cards/{callsign}/backgrounds/{filename}", s.handleBackgroundImage)
	mux.HandleFunc("POST /api/cards/{callsign}/generated", s.handleCardGenerated)

	mux.HandleFunc("GET /api/admin/users", s.handleAdminListUsers)
	mux.HandleFunc("POST /api/admin/users", s.handleAdminCreateUser)
	mux.HandleFunc("PUT /api/admin/users/{id}", s.handleAdminUpdateUser)
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.handleAdminDeleteUser)
	mux.HandleFunc("GET /api/admin/callsigns", s.handleAdminListCallsigns)
	mux.HandleFunc("POST /api/admin/callsigns", s.handleAdminCreateCallsign)
	mux.HandleFunc("PUT /api/admin/callsigns/{id}", s.handleAdminUpdateCallsign)
	mux.HandleFunc("DELETE /api/admin/callsigns/{id}", s.handleAdminDeleteCallsign)
	mux.HandleFunc("GET /api/admin/audit", s.handleAdminAudit)

	if info, err := os.Stat(s.cfg.WebRoot); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.WebRoot)))
	}

	return s.withLogging(s.withAuth(mux))
}
