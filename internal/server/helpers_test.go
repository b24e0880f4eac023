package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"promptmart/internal/models"
	"promptmart/internal/repository"
	"promptmart/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"commentId", "comment ID"},
		{"listingId", "listing ID"},
		{"purchaseRecordId", "purchase record ID"},
		{"username", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParsePage(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePage(c)
		return c.JSON(fiber.Map{"page": p.Page, "limit": p.Limit})
	})

	tests := []struct {
		query string
		page  float64
		limit float64
	}{
		{"", 1, 20},
		{"?page=3&limit=10", 3, 10},
		{"?page=0&limit=0", 1, 20},
		{"?page=-2&limit=500", 1, 100},
		{"?page=abc", 1, 20},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.page, body["page"])
			assert.Equal(t, tt.limit, body["limit"])
		})
	}
}

func TestParseID_Invalid(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/comments/:commentId", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "commentId")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	for _, raw := range []string{"0", "-4", "abc"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/comments/"+raw, nil))
		require.NoError(t, err)

		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, raw)
		assert.Equal(t, "Invalid comment ID", body.Error)
		assert.Equal(t, models.CodeInvalidInput, body.Code)
	}
}

func TestAdminRequired_ReadsRoleFromDatabase(t *testing.T) {
	userQuery := regexp.QuoteMeta(`SELECT * FROM "users"`)

	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		status int
	}{
		{
			name: "admin passes",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(userQuery).WillReturnRows(
					sqlmock.NewRows([]string{"id", "username", "role"}).AddRow(7, "root", "admin"))
			},
			status: fiber.StatusOK,
		},
		{
			name: "plain user is forbidden",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(userQuery).WillReturnRows(
					sqlmock.NewRows([]string{"id", "username", "role"}).AddRow(7, "mallory", "user"))
			},
			status: fiber.StatusForbidden,
		},
		{
			name: "deleted account is unauthorized",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(userQuery).WillReturnError(gorm.ErrRecordNotFound)
			},
			status: fiber.StatusUnauthorized,
		},
		{
			name: "lookup failure is internal",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(userQuery).WillReturnError(errors.New("connection reset"))
			},
			status: fiber.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tt.expect(mock)

			s := &Server{userService: service.NewUserService(repository.NewUserRepository(db))}
			app := fiber.New()
			app.Get("/admin",
				func(c *fiber.Ctx) error {
					c.Locals("userID", uint(7))
					return c.Next()
				},
				s.AdminRequired(),
				func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) },
			)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPrincipal_IsResolvedOncePerRequest(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "username", "role"}).AddRow(3, "carol", "user"))

	s := &Server{userService: service.NewUserService(repository.NewUserRepository(db))}
	app := fiber.New()
	app.Get("/twice", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(3))
		first, err := s.principal(c)
		require.NoError(t, err)
		second, err := s.principal(c)
		require.NoError(t, err)
		return c.JSON(fiber.Map{"same": first == second, "role": second.Role})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/twice", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["same"])
	assert.Equal(t, "user", body["role"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipal_AnonymousSkipsDatabase(t *testing.T) {
	db, mock := setupMockDB(t)
	s := &Server{userService: service.NewUserService(repository.NewUserRepository(db))}

	app := fiber.New()
	app.Get("/anon", func(c *fiber.Ctx) error {
		p, err := s.principal(c)
		require.NoError(t, err)
		return c.JSON(fiber.Map{"authenticated": p.Authenticated()})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/anon", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body["authenticated"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
