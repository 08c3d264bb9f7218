package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/achildrenmile/qslcardgenerator/internal/logging"
	"github.com/achildrenmile/qslcardgenerator/internal/server/callsigns"
	"github.com/achildrenmile/qslcardgenerator/internal/server/config"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories"
	"github.com/achildrenmile/qslcardgenerator/internal/server/services"
	"github.com/achildrenmile/qslcardgenerator/internal/server/storage"
)

type testServer struct {
	ts     *httptest.Server
	users  *services.UserService
	audits *services.AuditService
	store  *callsigns.Store
	images storage.ImageStore

	cancelAudit context.CancelFunc
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a pooled connection would get its own empty in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm := &repositories.SQLiteManager{}
	require.NoError(t, repositories.RunMigrations(context.Background(), db, rm))

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = dir
	cfg.WebRoot = filepath.Join(dir, "missing-webroot")
	cfg.BcryptCost = 4
	if mutate != nil {
		mutate(cfg)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	users := services.NewUserService(db, rm, cfg)
	sessions := services.NewSessionService(db, rm, cfg)
	audits := services.NewAuditService(db, rm, logger)
	store := callsigns.NewStore(filepath.Join(dir, "callsigns.json"))
	images := storage.NewFilesystem(dir)

	auditCtx, cancel := context.WithCancel(context.Background())
	go audits.Run(auditCtx)

	srv := NewServer(cfg, logger, users, sessions, audits, store, images)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{
		ts:          ts,
		users:       users,
		audits:      audits,
		store:       store,
		images:      images,
		cancelAudit: cancel,
	}
}

// flushAudit stops the audit drain goroutine after flushing everything
// recorded so far.
func (ts *testServer) flushAudit() {
	ts.cancelAudit()
	ts.audits.Wait()
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// seedUser creates a user directly through the service layer and returns a
// token from a real login.
func (ts *testServer) seedUser(t *testing.T, username, password string, callsign *string, isAdmin bool) string {
	t.Helper()
	_, err := ts.users.CreateUser(context.Background(), username, password, callsign, isAdmin)
	require.NoError(t, err)

	resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func strptr(s string) *string { return &s }

func TestLogin(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seedUser(t, "alice", "correct horse", strptr("oe1abc"), false)

	t.Run("missing fields", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "alice", "password": "nope",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		assert.Equal(t, "invalid username or password", body["error"])
	})

	t.Run("success returns identity", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "ALICE", "password": "correct horse",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[struct {
			Token string   `json:"token"`
			User  userView `json:"user"`
		}](t, resp)
		assert.Len(t, body.Token, 64)
		assert.Equal(t, "alice", body.User.Username)
		require.NotNil(t, body.User.Callsign)
		assert.Equal(t, "oe1abc", *body.User.Callsign)
	})
}

func TestLoginRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.LoginRateLimit = 2
	})

	for i := 0; i < 2; i++ {
		resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "ghost", "password": "nope",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "ghost", "password": "nope",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestMeAndLogout(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.seedUser(t, "alice", "correct horse", nil, false)

	resp := ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decodeBody[userView](t, resp)
	assert.Equal(t, "alice", me.Username)
	assert.Nil(t, me.Callsign)

	resp = ts.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// the token is dead after logout
	resp = ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	ts := newTestServer(t, nil)
	first := ts.seedUser(t, "alice", "correct horse", nil, false)

	resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeBody[map[string]any](t, resp)["token"].(string)

	resp = ts.do(t, http.MethodPost, "/api/auth/change-password", first, map[string]string{
		"currentPassword": "correct horse",
		"newPassword":     "battery staple",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/auth/me", second, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = ts.do(t, http.MethodGet, "/api/auth/me", first, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// old password no longer works
	resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "correct horse",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCardFetchIsOwnerScoped(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := ts.store.Create(context.Background(), &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)
	_, err = ts.store.Create(context.Background(), &models.CallsignConfig{ID: "oe1xyz"})
	require.NoError(t, err)
	require.NoError(t, ts.images.Put(context.Background(), "oe1abc", "card.png", strings.NewReader("png-bytes")))
	require.NoError(t, ts.images.Put(context.Background(), "oe1xyz", "card.png", strings.NewReader("png-bytes")))

	alice := ts.seedUser(t, "alice", "correct horse", strptr("oe1abc"), false)
	admin := ts.seedUser(t, "root", "correct horse", nil, true)

	t.Run("unauthenticated", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/cards/oe1abc/card.png", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("owner", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/cards/oe1abc/card.png", alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
	})

	t.Run("foreign callsign reads as missing", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/cards/oe1xyz/card.png", alice, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		assert.Equal(t, "not found", body["error"])
	})

	t.Run("admin reaches any callsign", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/cards/oe1xyz/card.png", admin, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("traversal filename reads as missing", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/cards/oe1abc/backgrounds/..%2Fcard.png", alice, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestManageCallsign(t *testing.T) {
	ts := newTestServer(t, nil)
	_, err := ts.store.Create(context.Background(), &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)

	alice := ts.seedUser(t, "alice", "correct horse", strptr("oe1abc"), false)
	bare := ts.seedUser(t, "bob", "correct horse", nil, false)

	resp := ts.do(t, http.MethodGet, "/api/manage/callsign", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cfg := decodeBody[models.CallsignConfig](t, resp)
	assert.Equal(t, "oe1abc", cfg.ID)
	assert.Equal(t, "OE1ABC", cfg.Name)
	assert.Equal(t, "https://www.qrz.com/db/OE1ABC", cfg.QRZLink)
	assert.Len(t, cfg.TextPositions, 6)

	resp = ts.do(t, http.MethodPut, "/api/manage/callsign", alice, map[string]any{
		"name": "Vienna Contest Club",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cfg = decodeBody[models.CallsignConfig](t, resp)
	assert.Equal(t, "Vienna Contest Club", cfg.Name)

	// no assigned callsign: nothing to manage
	resp = ts.do(t, http.MethodGet, "/api/manage/callsign", bare, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func multipartImage(t *testing.T, filename, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (ts *testServer) upload(t *testing.T, token, kind, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	body, formCT := multipartImage(t, filename, contentType, data)
	req, err := http.NewRequest(http.MethodPost, ts.ts.URL+"/api/manage/upload/"+kind, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", formCT)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ts.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestUploads(t *testing.T) {
	ts := newTestServer(t, nil)
	_, err := ts.store.Create(context.Background(), &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)
	alice := ts.seedUser(t, "alice", "correct horse", strptr("oe1abc"), false)

	t.Run("card", func(t *testing.T) {
		resp := ts.upload(t, alice, "card", "template.png", "image/png", []byte("card-bytes"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		assert.Equal(t, "card.png", body["filename"])

		fetched := ts.do(t, http.MethodGet, "/api/cards/oe1abc/card.png", alice, nil)
		require.Equal(t, http.StatusOK, fetched.StatusCode)
		data, err := io.ReadAll(fetched.Body)
		require.NoError(t, err)
		assert.Equal(t, "card-bytes", string(data))
	})

	t.Run("background gets a timestamped name", func(t *testing.T) {
		resp := ts.upload(t, alice, "background", "sunset.jpg", "image/jpeg", []byte("jpg-bytes"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		name := body["filename"]
		assert.True(t, strings.HasPrefix(name, "backgrounds/bg-"), name)
		assert.True(t, strings.HasSuffix(name, ".jpg"), name)

		listed := ts.do(t, http.MethodGet, "/api/manage/backgrounds", alice, nil)
		require.Equal(t, http.StatusOK, listed.StatusCode)
		backgrounds := decodeBody[map[string][]string](t, listed)["backgrounds"]
		require.Len(t, backgrounds, 1)

		deleted := ts.do(t, http.MethodDelete, "/api/manage/backgrounds/"+backgrounds[0], alice, nil)
		assert.Equal(t, http.StatusNoContent, deleted.StatusCode)

		listed = ts.do(t, http.MethodGet, "/api/manage/backgrounds", alice, nil)
		require.Equal(t, http.StatusOK, listed.StatusCode)
		assert.Empty(t, decodeBody[map[string][]string](t, listed)["backgrounds"])
	})

	t.Run("rejects non-image", func(t *testing.T) {
		resp := ts.upload(t, alice, "card", "notes.txt", "text/plain", []byte("hello"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		resp := ts.upload(t, alice, "banner", "x.png", "image/png", []byte("x"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		small := newTestServer(t, func(cfg *config.Config) { cfg.MaxUploadBytes = 64 })
		_, err := small.store.Create(context.Background(), &models.CallsignConfig{ID: "oe2a"})
		require.NoError(t, err)
		tok := small.seedUser(t, "carl", "correct horse", strptr("oe2a"), false)
		resp := small.upload(t, tok, "card", "big.png", "image/png", bytes.Repeat([]byte("a"), 4096))
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})
}

func TestGeneratorConfigAccess(t *testing.T) {
	ts := newTestServer(t, nil)
	_, err := ts.store.Create(context.Background(), &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)
	alice := ts.seedUser(t, "alice", "correct horse", strptr("oe1abc"), false)

	resp := ts.do(t, http.MethodGet, "/api/callsigns", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]callsigns.Summary](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "oe1abc", list[0].ID)

	resp = ts.do(t, http.MethodGet, "/api/callsigns/oe1abc", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/callsigns/oe9zzz", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/cards/oe1abc/generated", alice, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	ts.flushAudit()
	entries, err := ts.audits.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, models.ActionGeneratorAccessGranted)
	assert.Contains(t, actions, models.ActionGeneratorAccessDenied)
	assert.Contains(t, actions, models.ActionCardGenerated)
	assert.Contains(t, actions, models.ActionLogin)
}

func TestAdminNamespace(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.seedUser(t, "root", "correct horse", nil, true)
	plain := ts.seedUser(t, "alice", "correct horse", nil, false)

	t.Run("requires admin", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/admin/users", plain, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp = ts.do(t, http.MethodGet, "/api/admin/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("user lifecycle", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/admin/users", admin, map[string]any{
			"username": "Bob", "password": "long enough", "callsign": "OE3DEF",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decodeBody[adminUserView](t, resp)
		assert.Equal(t, "bob", created.Username)
		require.NotNil(t, created.Callsign)
		assert.Equal(t, "oe3def", *created.Callsign)

		// duplicate username
		resp = ts.do(t, http.MethodPost, "/api/admin/users", admin, map[string]any{
			"username": "bob", "password": "long enough",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		// clearing the callsign via explicit null
		resp = ts.do(t, http.MethodPut, "/api/admin/users/"+created.ID, admin, json.RawMessage(`{"callsign": null}`))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated := decodeBody[adminUserView](t, resp)
		assert.Nil(t, updated.Callsign)

		resp = ts.do(t, http.MethodPut, "/api/admin/users/"+created.ID, admin, map[string]any{"isAdmin": true})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decodeBody[adminUserView](t, resp).IsAdmin)

		resp = ts.do(t, http.MethodDelete, "/api/admin/users/"+created.ID, admin, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp = ts.do(t, http.MethodDelete, "/api/admin/users/"+created.ID, admin, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("callsign lifecycle", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/admin/callsigns", admin, map[string]any{"id": "OE5GHI"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decodeBody[models.CallsignConfig](t, resp)
		assert.Equal(t, "oe5ghi", created.ID)
		assert.Len(t, created.TextPositions, 6)

		resp = ts.do(t, http.MethodPost, "/api/admin/callsigns", admin, map[string]any{"id": "oe5ghi"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		resp = ts.do(t, http.MethodPut, "/api/admin/callsigns/oe5ghi", admin, map[string]any{
			"qrzLink": "https://example.org/oe5ghi",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "https://example.org/oe5ghi", decodeBody[models.CallsignConfig](t, resp).QRZLink)

		resp = ts.do(t, http.MethodGet, "/api/admin/callsigns", admin, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decodeBody[[]models.CallsignConfig](t, resp), 1)

		resp = ts.do(t, http.MethodDelete, "/api/admin/callsigns/oe5ghi", admin, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp = ts.do(t, http.MethodDelete, "/api/admin/callsigns/oe5ghi", admin, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("audit listing", func(t *testing.T) {
		ts.flushAudit()
		resp := ts.do(t, http.MethodGet, "/api/admin/audit?limit=5", admin, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		entries := decodeBody[[]auditView](t, resp)
		assert.NotEmpty(t, entries)
		for _, e := range entries {
			assert.NotEmpty(t, e.Action)
			assert.NotEmpty(t, e.SourceAddress)
		}

		resp = ts.do(t, http.MethodGet, "/api/admin/audit?limit=abc", admin, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
