package api

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/config"
	"github.com/peluqueria/salond/internal/app"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/events"
	"github.com/peluqueria/salond/internal/webserver"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Name)
	}
	return out
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

type testEnv struct {
	t      *testing.T
	app    *app.Application
	srv    *webserver.Server
	events *eventRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Web.UploadDir = t.TempDir()
	cfg.Database.Name = "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"

	db, err := app.OpenDatabase(cfg.Database, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	application := app.NewApplication(cfg)
	application.OverrideDB(db)
	require.NoError(t, application.MigrateDB(false))

	rec := &eventRecorder{}
	require.NoError(t, application.Events().SubscribeAll(rec.record))

	srv := webserver.NewServer(application)
	Register(srv)
	return &testEnv{t: t, app: application, srv: srv, events: rec}
}

func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) decode(rec *httptest.ResponseRecorder, v interface{}) {
	e.t.Helper()
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// user inserts an account and returns it with a valid token.
func (e *testEnv) user(role string) (*domain.User, string) {
	e.t.Helper()
	hash, err := auth.HashPassword("secret1")
	require.NoError(e.t, err)
	u := &domain.User{
		Name:         role + " user",
		Email:        fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(e.t, e.app.DB().Create(u).Error)
	token, err := e.app.Issuer().Issue(u.ID, u.Email, u.Role)
	require.NoError(e.t, err)
	return u, token
}

func (e *testEnv) product(name, price string) *domain.Product {
	e.t.Helper()
	p := &domain.Product{Name: name, Price: decimal.RequireFromString(price), Stock: 10}
	require.NoError(e.t, e.app.DB().Create(p).Error)
	return p
}

func (e *testEnv) count(model interface{}) int64 {
	e.t.Helper()
	var n int64
	require.NoError(e.t, e.app.DB().Model(model).Count(&n).Error)
	return n
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, status, rec.Body.String())
	}
}
