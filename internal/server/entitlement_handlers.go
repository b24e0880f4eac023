package server

import (
	"promptmart/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PurchaseListing handles POST /api/listings/:id/purchase
// @Summary Purchase a paid listing
// @Description Settles payment and grants a completed entitlement.
// @Tags entitlements
// @Produce json
// @Param id path int true "Listing ID"
// @Success 201 {object} object{success=bool,data=models.Purchase}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /listings/{id}/purchase [post]
func (s *Server) PurchaseListing(c *fiber.Ctx) error {
	listingID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	purchase, err := s.entitlementService.Purchase(c.UserContext(), p, listingID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusCreated, purchase)
}

// CheckAccess handles GET /api/listings/:id/access
// @Summary Check content access
// @Tags entitlements
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} object{success=bool,data=models.AccessInfo}
// @Failure 404 {object} models.ErrorResponse
// @Router /listings/{id}/access [get]
func (s *Server) CheckAccess(c *fiber.Ctx) error {
	listingID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	info, err := s.entitlementService.CheckAccess(c.UserContext(), p, listingID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, info)
}

// DownloadPurchase handles POST /api/purchases/:id/download
// @Summary Download purchased prompt
// @Description Returns the full listing and records the download.
// @Tags entitlements
// @Produce json
// @Param id path int true "Purchase ID"
// @Success 200 {object} object{success=bool,data=models.Listing}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /purchases/{id}/download [post]
func (s *Server) DownloadPurchase(c *fiber.Ctx) error {
	purchaseID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	listing, err := s.entitlementService.Download(c.UserContext(), p, purchaseID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, listing)
}

// GetMyPurchases handles GET /api/me/purchases
func (s *Server) GetMyPurchases(c *fiber.Ctx) error {
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	page, err := s.entitlementService.ListPurchases(c.UserContext(), p, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}

// GetMySales handles GET /api/me/sales
func (s *Server) GetMySales(c *fiber.Ctx) error {
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	page, err := s.entitlementService.ListSales(c.UserContext(), p, parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, page)
}
