package server

import (
	"promptmart/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPendingListings handles GET /api/admin/listings/pending
// @Summary Review queue
// @Tags moderation
// @Produce json
// @Success 200 {object} object{success=bool,items=[]models.Listing,pagination=models.Pagination}
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/listings/pending [get]
func (s *Server) GetPendingListings(c *fiber.Ctx) error {
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	page, err := s.moderationService.ListPendingReview(c.UserContext(), p, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}

// ApproveListing handles POST /api/admin/listings/:id/approve
// @Summary Approve a pending listing
// @Tags moderation
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} object{success=bool,data=models.Listing}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/listings/{id}/approve [post]
func (s *Server) ApproveListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	listing, err := s.moderationService.Approve(c.UserContext(), p, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, listing)
}

// RejectListing handles POST /api/admin/listings/:id/reject
// @Summary Reject a pending listing
// @Tags moderation
// @Accept json
// @Produce json
// @Param id path int true "Listing ID"
// @Param request body object{reason=string} true "Rejection reason"
// @Success 200 {object} object{success=bool,data=models.Listing}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/listings/{id}/reject [post]
func (s *Server) RejectListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	listing, err := s.moderationService.Reject(c.UserContext(), p, id, req.Reason)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, listing)
}

// MoveListingToDraft handles POST /api/listings/:id/draft
func (s *Server) MoveListingToDraft(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	listing, err := s.moderationService.MoveToDraft(c.UserContext(), p, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, listing)
}

// SubmitListing handles POST /api/listings/:id/submit
func (s *Server) SubmitListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	listing, err := s.moderationService.Submit(c.UserContext(), p, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, listing)
}
