package server

import (
	"strings"

	"promptmart/internal/models"
	"promptmart/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultDirtyBatch = 500

// Reconcile handles POST /api/admin/reconcile
// @Summary Reconcile denormalized counters
// @Description Recomputes counters from relation tables and repairs drift unless dry_run is set.
// @Tags admin
// @Produce json
// @Param scope query string false "all (default), dirty, listing or user"
// @Param id query int false "Listing or user ID for single-entity scopes"
// @Param dry_run query bool false "Report drift without repairing"
// @Param batch query int false "Dirty ids popped per entity"
// @Success 200 {object} object{success=bool,data=service.ReconcileReport}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reconcile [post]
func (s *Server) Reconcile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	dryRun := c.QueryBool("dry_run", false)

	var (
		report *service.ReconcileReport
		err    error
	)
	switch scope := strings.ToLower(c.Query("scope", "all")); scope {
	case "all":
		report, err = s.reconcileService.Reconcile(ctx, dryRun)
	case "dirty":
		if dryRun {
			return models.RespondWithError(c, models.NewValidationError("dry_run is not supported for the dirty scope"))
		}
		batch := c.QueryInt("batch", defaultDirtyBatch)
		if batch <= 0 {
			batch = defaultDirtyBatch
		}
		report, err = s.reconcileService.ReconcileDirty(ctx, int64(batch))
	case "listing", "user":
		id := c.QueryInt("id", 0)
		if id <= 0 {
			return models.RespondWithError(c, models.NewValidationError("id is required for scope "+scope))
		}
		if scope == "listing" {
			report, err = s.reconcileService.ReconcileListing(ctx, uint(id), dryRun)
		} else {
			report, err = s.reconcileService.ReconcileUser(ctx, uint(id), dryRun)
		}
	default:
		return models.RespondWithError(c, models.NewValidationError("scope must be one of all, dirty, listing, user"))
	}
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, report)
}

// GetAdmins handles GET /api/admin/users/admins
func (s *Server) GetAdmins(c *fiber.Ctx) error {
	admins, err := s.userService.ListAdmins(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, admins)
}

// SetUserRole handles PUT /api/admin/users/:username/role
// @Summary Promote or demote a user
// @Tags admin
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param request body object{role=string} true "user or admin"
// @Success 200 {object} object{success=bool,data=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{username}/role [put]
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}
	p, err := s.principal(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	username := c.Params("username")
	target, err := s.userService.GetByUsername(c.UserContext(), username)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	if target.ID == p.UserID && req.Role != models.RoleAdmin {
		return models.RespondWithError(c, models.NewInvalidOperationError("Admins cannot demote themselves"))
	}

	user, err := s.userService.SetRole(c.UserContext(), username, req.Role)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.RespondOK(c, fiber.StatusOK, user)
}
