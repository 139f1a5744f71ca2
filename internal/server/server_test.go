package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"shutterhub/internal/config"
	"shutterhub/internal/database"
	"shutterhub/internal/storage"
	"shutterhub/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testUserPassword = "Sup3r$ecretPass"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *miniredis.Miniredis
	photos *testutil.MemoryStore
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            "test-secret-key-12345678901234567890123456789012",
		JWTIssuer:            "shutterhub-api",
		JWTAudience:          "shutterhub-client",
		AllowedOrigins:       "http://localhost:5173",
		ImageMaxUploadSizeMB: 5,
		UploadQuotaRegular:   3,
		UploadQuotaVIP:       10,
	}
}

// newTestEnv wires a full Server over an in-memory sqlite database, miniredis and
// in-memory buckets, with every route registered.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	photos := testutil.NewMemoryStore("photos")
	buckets := storage.Buckets{
		Photos:       photos,
		Avatars:      testutil.NewMemoryStore("avatars"),
		Verification: testutil.NewMemoryStore("verification"),
	}

	s, err := NewServerWithDeps(testConfig(), db, rdb, buckets)
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.hub != nil {
			_ = s.hub.Shutdown(context.Background())
		}
		_ = rdb.Close()
		_ = sqlDB.Close()
	})

	app := fiber.New()
	s.SetupRoutes(app)
	return &testEnv{server: s, app: app, db: db, redis: mr, photos: photos}
}

type authTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// signup registers username and returns its tokens and user id.
func (e *testEnv) signup(t *testing.T, username string) (authTokens, uint) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testUserPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))

	var body struct {
		Tokens authTokens `json:"tokens"`
		User   struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Tokens.AccessToken)
	return body.Tokens, body.User.ID
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// uploadImages posts count PNG files as a multipart "images" field.
func (e *testEnv) uploadImages(t *testing.T, token string, count int, fields map[string]string) *http.Response {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i := 0; i < count; i++ {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="shot.png"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(testutil.TinyPNG(t, 16, 12))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return string(raw)
}
