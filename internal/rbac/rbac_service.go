package rbac

import (
	"github.com/OlegKumachev/kiout-test-backend/internal/domain"

	"github.com/casbin/casbin/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

type service struct {
	repo     Repository
	enforcer *casbin.Enforcer
	logger   *zap.Logger
}

func NewService(repo Repository, enforcer *casbin.Enforcer, logger ...*zap.Logger) Service {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}
	return &service{repo: repo, enforcer: enforcer, logger: l}
}

func (s *service) roleFor(userID string) (string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return "", nil
	}

	row, err := s.repo.GetUserRole(userID)
	if err != nil {
		return "", err
	}
	if row == nil || !row.IsActive {
		return "", nil
	}
	if row.IsStaff {
		return domain.RoleStaff, nil
	}
	return domain.RoleMember, nil
}

func (s *service) Enforce(req domain.EnforceRequest) (bool, error) {
	role, err := s.roleFor(req.UserID)
	if err != nil {
		s.logger.Error("role lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
		return false, err
	}

	if role == "" {
		s.logger.Info("rbac enforce denied: unknown or inactive user", zap.String("user_id", req.UserID))
		return false, nil
	}

	allowed, err := s.enforcer.Enforce(role, req.Resource, req.Action)
	if err != nil {
		return false, err
	}

	s.logger.Debug("rbac enforce result",
		zap.String("user_id", req.UserID),
		zap.String("role", role),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.Bool("allowed", allowed),
	)

	return allowed, nil
}
