package service

import (
	"context"

	"promptmart/internal/models"
	"promptmart/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetProfile returns a user with their stored follow counters.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// Principal resolves the role of an authenticated user id. The role is read
// from the database on every call so promotions apply immediately.
func (s *UserService) Principal(ctx context.Context, userID uint) (models.Principal, error) {
	if userID == 0 {
		return models.Anonymous, nil
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.Anonymous, models.NewUnauthorizedError("account no longer exists")
		}
		return models.Anonymous, err
	}
	return models.PrincipalFor(user), nil
}

// SetRole changes a user's role by username.
func (s *UserService) SetRole(ctx context.Context, username string, role models.Role) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, models.NewValidationError("role must be user or admin")
	}
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetRole(ctx, user.ID, role); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListByRole(ctx, models.RoleAdmin)
}
