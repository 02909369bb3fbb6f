package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evo-faceit/arena-server/models"
	"github.com/evo-faceit/arena-server/repositories"
)

type UpdateProfileInput struct {
	Nickname *string `json:"nickname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Banner   *string `json:"banner,omitempty"`
}

type UserService interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error)
	ToggleAdmin(ctx context.Context, userID string) (*models.User, error)
	Delete(ctx context.Context, userID string) error
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	return s.userRepo.List(ctx)
}

// UpdateProfile обновляет только переданные поля профиля.
func (s *userService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Nickname != nil {
		nickname := strings.TrimSpace(*input.Nickname)
		if nickname == "" {
			return nil, ErrNicknameRequired
		}
		user.Nickname = nickname
	}
	if input.Avatar != nil {
		user.Avatar = input.Avatar
	}
	if input.Banner != nil {
		user.Banner = input.Banner
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserNicknameConflict) {
			return nil, ErrNicknameTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ToggleAdmin переключает роль пользователя между player и admin.
func (s *userService) ToggleAdmin(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Role == models.RoleAdmin {
		user.Role = models.RolePlayer
	} else {
		user.Role = models.RoleAdmin
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to toggle admin role: %w", err)
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	err := s.userRepo.Delete(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}
