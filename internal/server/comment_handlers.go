package server

import (
	"promptmart/internal/models"
	"promptmart/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/listings/:id/comments
// @Summary List comments
// @Description Comments on a listing, newest first.
// @Tags comments
// @Produce json
// @Param id path int true "Listing ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} object{success=bool,items=[]models.Comment,pagination=models.Pagination}
// @Failure 404 {object} models.ErrorResponse
// @Router /listings/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	listingID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	page, err := s.commentService.ListComments(c.UserContext(), p, listingID, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}

// CreateComment handles POST /api/listings/:id/comments
// @Summary Comment on a listing
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Listing ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {object} object{success=bool,data=models.Comment}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /listings/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	listingID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
		Principal: p,
		ListingID: listingID,
		Content:   req.Content,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.commentService.DeleteComment(c.UserContext(), p, commentID); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, fiber.Map{"message": "Comment deleted"})
}
