package server

import (
	"promptmart/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:id
// @Summary Get user profile
// @Description Public profile with follower and following counts.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{success=bool,data=models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	user, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	if p.UserID != user.ID && !p.IsAdmin() {
		user.Email = ""
	}
	return models.RespondOK(c, fiber.StatusOK, user)
}

// GetMyProfile handles GET /api/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	user, err := s.userService.GetProfile(c.UserContext(), p.UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, user)
}
