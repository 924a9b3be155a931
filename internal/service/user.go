package service

import (
	"context"

	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
)

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetProfile returns an empty profile for users who never saved one.
func (s *userService) GetProfile(ctx context.Context, ac authz.Context) (*domain.User, error) {
	if err := requireAuthenticated(ac); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, ac.UserID)
	if apperr.Is(err, codes.NotFound) {
		return &domain.User{ID: ac.UserID}, nil
	}
	return user, err
}

func (s *userService) UpdateProfile(ctx context.Context, ac authz.Context, displayName, email, phone string) (*domain.User, error) {
	if err := requireAuthenticated(ac); err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:          ac.UserID,
		DisplayName: displayName,
		Email:       email,
		Phone:       phone,
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
