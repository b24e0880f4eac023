package server

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"promptmart/internal/middleware"
	"promptmart/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already committed the response.
// Handlers return nil when they see it so the error handler does not overwrite it.
var errResponseWritten = errors.New("response already written")

const principalLocal = "principal"

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// "id" -> "Invalid ID", "commentId" -> "Invalid comment ID".
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// parsePage reads ?page and ?limit. Out-of-range values are clamped rather
// than rejected.
func parsePage(c *fiber.Ctx) models.PageRequest {
	return models.NewPageRequest(c.QueryInt("page", 1), c.QueryInt("limit", 20))
}

// principal resolves the caller. The role comes from the users table on every
// request so promotions and demotions apply immediately. Callers without a
// verified token are anonymous.
func (s *Server) principal(c *fiber.Ctx) (models.Principal, error) {
	if p, ok := c.Locals(principalLocal).(models.Principal); ok {
		return p, nil
	}

	userID, _ := c.Locals("userID").(uint)
	p, err := s.userService.Principal(c.UserContext(), userID)
	if err != nil {
		return models.Anonymous, err
	}
	if p.Authenticated() {
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, p.UserID))
	}
	c.Locals(principalLocal, p)
	return p, nil
}

// respondPage writes a page in the list envelope.
func respondPage[T any](c *fiber.Ctx, page *models.Page[T]) error {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"items":      items,
		"pagination": page.Pagination,
	})
}

// AdminRequired rejects callers whose stored role is not admin.
// Must be placed after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := s.principal(c)
		if err != nil {
			return models.RespondWithError(c, err)
		}
		if !p.IsAdmin() {
			return models.RespondWithError(c, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}
