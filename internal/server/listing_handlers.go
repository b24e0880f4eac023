package server

import (
	"promptmart/internal/models"
	"promptmart/internal/repository"
	"promptmart/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type createListingRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Content     string          `json:"content"`
	Category    string          `json:"category"`
	AIModel     string          `json:"ai_model"`
	Price       decimal.Decimal `json:"price"`
	Draft       bool            `json:"draft"`
}

type updateListingRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Content     *string          `json:"content"`
	Category    *string          `json:"category"`
	AIModel     *string          `json:"ai_model"`
	Price       *decimal.Decimal `json:"price"`
}

// GetListings handles GET /api/listings
// @Summary List public listings
// @Description Approved listings, newest first unless sort is top or popular.
// @Tags listings
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Param category query string false "Category slug"
// @Param sort query string false "new, top or popular"
// @Success 200 {object} object{success=bool,items=[]models.Listing,pagination=models.Pagination}
// @Failure 400 {object} models.ErrorResponse
// @Router /listings [get]
func (s *Server) GetListings(c *fiber.Ctx) error {
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	filter := repository.ListingFilter{
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	}
	page, err := s.listingService.ListPublic(c.UserContext(), p, filter, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}

// GetListing handles GET /api/listings/:id
// @Summary Get listing
// @Description Paid prompt text is omitted unless the caller is the author, an admin or a buyer.
// @Tags listings
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} object{success=bool,data=models.Listing}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /listings/{id} [get]
func (s *Server) GetListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	listing, err := s.listingService.GetListing(c.UserContext(), p, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, listing)
}

// CreateListing handles POST /api/listings
// @Summary Create listing
// @Description New listings start pending review, or draft when requested.
// @Tags listings
// @Accept json
// @Produce json
// @Param request body createListingRequest true "Listing"
// @Success 201 {object} object{success=bool,data=models.Listing}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /listings [post]
func (s *Server) CreateListing(c *fiber.Ctx) error {
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	var req createListingRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	listing, err := s.listingService.CreateListing(c.UserContext(), service.CreateListingInput{
		Principal:   p,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		AIModel:     req.AIModel,
		Price:       req.Price,
		Draft:       req.Draft,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusCreated, listing)
}

// UpdateListing handles PUT /api/listings/:id
func (s *Server) UpdateListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	var req updateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	listing, err := s.listingService.UpdateListing(c.UserContext(), service.UpdateListingInput{
		Principal:   p,
		ListingID:   id,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		AIModel:     req.AIModel,
		Price:       req.Price,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, listing)
}

// DeleteListing handles DELETE /api/listings/:id
// @Summary Delete listing
// @Tags listings
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} object{success=bool,data=object{message=string}}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /listings/{id} [delete]
func (s *Server) DeleteListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.listingService.DeleteListing(c.UserContext(), p, id); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, fiber.Map{"message": "Listing deleted"})
}

// GetUserListings handles GET /api/users/:id/listings
func (s *Server) GetUserListings(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	page, err := s.listingService.ListByAuthor(c.UserContext(), p, authorID, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}
