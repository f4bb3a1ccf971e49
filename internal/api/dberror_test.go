package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/peluqueria/salond/config"
	"github.com/peluqueria/salond/internal/app"
	"github.com/peluqueria/salond/internal/webserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockServer wires the API onto a postgres dialector backed by sqlmock.
func newMockServer(t *testing.T, env string) (*webserver.Server, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.System.Env = env
	cfg.Web.UploadDir = t.TempDir()
	application := app.NewApplication(cfg)
	application.OverrideDB(db)

	srv := webserver.NewServer(application)
	Register(srv)
	return srv, mock
}

func TestDatabaseFailureIs500(t *testing.T) {
	srv, mock := newMockServer(t, config.EnvDevelopment)
	mock.ExpectQuery(`SELECT \* FROM "products"`).WillReturnError(errors.New("connection reset by peer"))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body struct {
		Message string `json:"message"`
		Error   struct {
			Code   string `json:"code"`
			Detail string `json:"detail"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to query products", body.Message)
	assert.Equal(t, "DATABASE_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Detail, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseFailureHidesDetailInProduction(t *testing.T) {
	srv, mock := newMockServer(t, config.EnvProduction)
	mock.ExpectQuery(`SELECT \* FROM "services"`).WillReturnError(errors.New("password authentication failed"))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/servicios", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error","error":{}}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
