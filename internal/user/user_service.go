package user

import (
	"context"
	"errors"
	"strings"

	"github.com/OlegKumachev/kiout-test-backend/internal/shared/contextutil"
	usererrors "github.com/OlegKumachev/kiout-test-backend/internal/user/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

//go:generate mockgen -source=user_service.go -destination=mock/user_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (UserResponse, error)
	GetByID(ctx context.Context, id string) (UserResponse, error)
	GetAll(ctx context.Context) ([]UserResponse, error)
	// FirstUserID returns the oldest user's id, or nil when there are no users.
	FirstUserID(ctx context.Context) (*uuid.UUID, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateUserRequest) (UserResponse, error) {
	l := contextutil.Logger(ctx, zap.L().Named("user.service"))

	username := strings.TrimSpace(req.Username)
	if len(req.Password) < minPasswordLength {
		return UserResponse{}, usererrors.ErrInvalidPassword
	}

	l.Info("creating user", zap.String("username", username), zap.Bool("is_staff", req.IsStaff))

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error("failed to hash password", zap.Error(err))
		return UserResponse{}, err
	}

	u := &User{
		ID:       uuid.New(),
		Username: username,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hashedPassword),
		IsStaff:  req.IsStaff,
		IsActive: true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		l.Error("failed to create user", zap.String("username", username), zap.Error(err))
		return UserResponse{}, mapRepositoryError(err)
	}

	l.Info("user created successfully", zap.String("user_id", u.ID.String()))
	return mapToResponse(*u), nil
}

func (s *service) GetByID(ctx context.Context, id string) (UserResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return UserResponse{}, usererrors.ErrInvalidUserID
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return UserResponse{}, mapRepositoryError(err)
	}
	return mapToResponse(*u), nil
}

func (s *service) GetAll(ctx context.Context) ([]UserResponse, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = mapToResponse(u)
	}
	return resp, nil
}

func (s *service) FirstUserID(ctx context.Context) (*uuid.UUID, error) {
	u, err := s.repo.FindFirst(ctx)
	if err != nil {
		if errors.Is(mapRepositoryError(err), usererrors.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := u.ID
	return &id, nil
}

func mapToResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		IsStaff:   u.IsStaff,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
