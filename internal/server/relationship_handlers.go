package server

import (
	"promptmart/internal/models"

	"github.com/gofiber/fiber/v2"
)

// toggle is shared by the follow, like and favorite endpoints.
func (s *Server) toggle(c *fiber.Ctx, kind models.EdgeKind) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	result, err := s.relationshipService.ToggleEdge(c.UserContext(), p, kind, targetID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, result)
}

// ToggleFollow handles POST /api/users/:id/follow
// @Summary Follow or unfollow a user
// @Tags relationships
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{success=bool,data=models.ToggleResult}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	return s.toggle(c, models.EdgeFollow)
}

// ToggleLike handles POST /api/listings/:id/like
// @Summary Like or unlike a listing
// @Tags relationships
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} object{success=bool,data=models.ToggleResult}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /listings/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	return s.toggle(c, models.EdgeLike)
}

// ToggleFavorite handles POST /api/listings/:id/favorite
func (s *Server) ToggleFavorite(c *fiber.Ctx) error {
	return s.toggle(c, models.EdgeFavorite)
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := s.relationshipService.ListFollowers(c.UserContext(), userID, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := s.relationshipService.ListFollowing(c.UserContext(), userID, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}

// GetFollowStatus handles GET /api/users/:id/follow-status
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	status, err := s.relationshipService.GetFollowStatus(c.UserContext(), p, userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, status)
}

// GetListingLikes handles GET /api/listings/:id/likes
func (s *Server) GetListingLikes(c *fiber.Ctx) error {
	listingID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	page, err := s.relationshipService.ListListingLikes(c.UserContext(), p, listingID, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}

// GetEdgeStatuses handles POST /api/listings/statuses
// @Summary Like and favorite state for a set of listings
// @Tags relationships
// @Accept json
// @Produce json
// @Param request body object{listing_ids=[]int} true "Listing IDs (max 100)"
// @Success 200 {object} object{success=bool,data=map[string]models.EdgeStatus}
// @Failure 400 {object} models.ErrorResponse
// @Router /listings/statuses [post]
func (s *Server) GetEdgeStatuses(c *fiber.Ctx) error {
	var req struct {
		ListingIDs []uint `json:"listing_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	statuses, err := s.relationshipService.EdgeStatuses(c.UserContext(), p, req.ListingIDs)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, statuses)
}

func (s *Server) myListings(c *fiber.Ctx, kind models.EdgeKind) error {
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	page, err := s.relationshipService.ListMyListings(c.UserContext(), p, kind, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}

// GetMyLikes handles GET /api/me/likes
func (s *Server) GetMyLikes(c *fiber.Ctx) error {
	return s.myListings(c, models.EdgeLike)
}

// GetMyFavorites handles GET /api/me/favorites
func (s *Server) GetMyFavorites(c *fiber.Ctx) error {
	return s.myListings(c, models.EdgeFavorite)
}
