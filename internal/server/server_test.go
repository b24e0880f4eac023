package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"promptmart/internal/config"
	"promptmart/internal/models"
	"promptmart/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                     "0",
		JWTSecret:                testutil.JWTSecret,
		JWTIssuer:                testutil.JWTIssuer,
		JWTAudience:              testutil.JWTAudience,
		Env:                      "test",
		AllowedOrigins:           "http://localhost:5173",
		ListingCacheTTLSeconds:   60,
		CascadeMaxElapsedSeconds: 1,
		RateLimitGlobalPerMinute: 10000,
		SnowflakeNode:            1,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := NewServerWithDeps(testConfig(), db, rdb)
	require.NoError(t, err)
	return &testEnv{srv: srv, app: srv.NewApp(), db: db, mr: mr}
}

type apiResponse struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Items      json.RawMessage   `json:"items"`
	Pagination models.Pagination `json:"pagination"`
	Error      string            `json:"error"`
	Code       string            `json:"code"`
}

// call performs a request as userID (0 for anonymous) and decodes the envelope.
func (e *testEnv) call(t *testing.T, method, path string, userID uint, body any) (int, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+testutil.Token(t, userID))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func decodeInto[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func path(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	return testutil.CreateUser(t, e.db, name, models.RoleUser)
}

func (e *testEnv) admin(t *testing.T, name string) *models.User {
	return testutil.CreateUser(t, e.db, name, models.RoleAdmin)
}

func (e *testEnv) listing(t *testing.T, author *models.User, opts testutil.ListingOpts) *models.Listing {
	return testutil.CreateListing(t, e.db, author, opts)
}
