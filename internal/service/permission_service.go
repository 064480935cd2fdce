package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/model"
	"campus-conduct/backend/internal/repository"
)

// ── 权限模块业务错误 ──

var (
	ErrRoleNotFound = errors.New("角色不存在")
)

// roleGrant 单个默认角色的授予配置
type roleGrant struct {
	// DisplayName 规范显示名。merge 去重时，原始拼写等于规范显示名的
	// 角色在平票时胜出
	DisplayName string
	Permissions []string
}

// defaultRoleGrants 默认角色授予表，key 为归一化 token。
// 历史上这些授予散落在一次性维护脚本里，此处收敛为配置数据，
// 由 ProvisionDefaults 在启动时幂等应用
var defaultRoleGrants = map[string]roleGrant{
	"admin": {
		DisplayName: "admin",
		Permissions: []string{
			CapSemesterClosePropose, CapSemesterLockSoft, CapSemesterLockHard, CapSemesterLockRollback,
			CapActivitiesCreate, CapActivitiesUpdate, CapActivitiesDelete,
			CapRegistrationsApprove, CapAttendanceMark,
			CapRolesManage, CapUsersManage, CapReportsExport,
		},
	},
	"counselor": {
		DisplayName: "counselor",
		Permissions: []string{
			CapSemesterClosePropose, CapSemesterLockSoft,
			CapActivitiesCreate, CapActivitiesUpdate,
			CapRegistrationsApprove, CapAttendanceMark,
			CapReportsExport,
		},
	},
	"monitor": {
		DisplayName: "monitor",
		Permissions: []string{
			CapSemesterClosePropose,
			CapActivitiesCreate,
			CapRegistrationsApprove, CapAttendanceMark,
		},
	},
	"student": {
		DisplayName: "student",
		Permissions: []string{},
	},
}

// PermissionBuster 跨实例缓存失效信号（Redis 实现，可为 nil）
type PermissionBuster interface {
	BustPermission(ctx context.Context, roleToken string, ttl time.Duration) error
	PermissionBustedAt(ctx context.Context, roleToken string) (time.Time, error)
}

// PermissionService 角色权限解析接口
//
// 约定：
//   - 角色标识在查询前统一归一化（大小写/变音符号不敏感）
//   - 查不到角色时返回 false 而非错误；存储故障返回错误，
//     调用方必须区分"被拒绝"与"无法得知"
//   - 权限变更（patch/merge）必须调用 Invalidate，变更最迟在一个
//     缓存 TTL 窗口后对所有实例可见，而非立即可见
type PermissionService interface {
	HasCapability(ctx context.Context, roleIdentity, capability string) (bool, error)
	ResolvePermissions(ctx context.Context, roleIdentity string) ([]string, error)
	Invalidate(ctx context.Context, roleIdentity string)
	MergeDuplicateRoles(ctx context.Context, callerID string) (*dto.MergeReportResponse, error)
	ProvisionDefaults(ctx context.Context) error
}

type permCacheEntry struct {
	perms    map[string]struct{}
	list     []string
	found    bool
	cachedAt time.Time
}

type permissionService struct {
	repo   *repository.Repository
	buster PermissionBuster
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]permCacheEntry // key: 归一化 token
}

// NewPermissionService 创建 PermissionService 实例
// buster 可为 nil（单实例部署 / 测试场景），此时仅依赖本地 TTL 过期
func NewPermissionService(repo *repository.Repository, buster PermissionBuster, ttl time.Duration, logger *zap.Logger) PermissionService {
	return &permissionService{
		repo:   repo,
		buster: buster,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]permCacheEntry),
	}
}

// ────────────────────── HasCapability ──────────────────────

func (s *permissionService) HasCapability(ctx context.Context, roleIdentity, capability string) (bool, error) {
	entry, err := s.resolve(ctx, roleIdentity)
	if err != nil {
		return false, err
	}
	if !entry.found {
		// 角色未知：拒绝而非报错，fail closed
		return false, nil
	}
	_, ok := entry.perms[capability]
	return ok, nil
}

func (s *permissionService) ResolvePermissions(ctx context.Context, roleIdentity string) ([]string, error) {
	entry, err := s.resolve(ctx, roleIdentity)
	if err != nil {
		return nil, err
	}
	if !entry.found {
		return nil, ErrRoleNotFound
	}
	return entry.list, nil
}

// resolve 返回归一化角色的权限集，缓存过期时回源
func (s *permissionService) resolve(ctx context.Context, roleIdentity string) (permCacheEntry, error) {
	token := NormalizeRoleName(roleIdentity)

	s.mu.RLock()
	entry, ok := s.cache[token]
	s.mu.RUnlock()

	if ok && s.entryValid(ctx, token, entry) {
		return entry, nil
	}

	// 缓存未命中或已过期：回源并刷新
	fresh, err := s.fetch(ctx, token)
	if err != nil {
		s.logger.Error("加载角色权限失败", zap.String("role", token), zap.Error(err))
		return permCacheEntry{}, err
	}

	s.mu.Lock()
	s.cache[token] = fresh
	s.mu.Unlock()

	return fresh, nil
}

// entryValid 检查缓存条目是否仍可使用
func (s *permissionService) entryValid(ctx context.Context, token string, entry permCacheEntry) bool {
	if s.now().Sub(entry.cachedAt) >= s.ttl {
		return false
	}
	if s.buster == nil {
		return true
	}
	bustedAt, err := s.buster.PermissionBustedAt(ctx, token)
	if err != nil {
		// Redis 故障时退化为仅依赖本地 TTL
		s.logger.Warn("查询权限失效信号失败", zap.String("role", token), zap.Error(err))
		return true
	}
	return !bustedAt.After(entry.cachedAt)
}

// fetch 从存储加载归一化角色的权限集
// 同一 token 可能对应多条未合并的角色记录，按并集处理
func (s *permissionService) fetch(ctx context.Context, token string) (permCacheEntry, error) {
	roles, err := s.repo.Role.List(ctx)
	if err != nil {
		return permCacheEntry{}, err
	}

	perms := make(map[string]struct{})
	found := false
	for i := range roles {
		if NormalizeRoleName(roles[i].Name) != token {
			continue
		}
		found = true
		for _, p := range roles[i].Permissions {
			perms[p] = struct{}{}
		}
	}

	list := make([]string, 0, len(perms))
	for p := range perms {
		list = append(list, p)
	}
	sort.Strings(list)

	return permCacheEntry{perms: perms, list: list, found: found, cachedAt: s.now()}, nil
}

// ────────────────────── Invalidate ──────────────────────

func (s *permissionService) Invalidate(ctx context.Context, roleIdentity string) {
	token := NormalizeRoleName(roleIdentity)

	s.mu.Lock()
	delete(s.cache, token)
	s.mu.Unlock()

	if s.buster != nil {
		// 跨实例广播，TTL 取两倍缓存周期即可覆盖所有实例的本地过期窗口
		if err := s.buster.BustPermission(ctx, token, 2*s.ttl); err != nil {
			s.logger.Warn("广播权限失效信号失败", zap.String("role", token), zap.Error(err))
		}
	}
}

// ────────────────────── MergeDuplicateRoles ──────────────────────

// MergeDuplicateRoles 合并归一化后同名的重复角色。
//
// 胜者选择（确定性）：
//  1. 权限集最大者
//  2. 原始拼写等于授予表规范显示名者
//  3. role_id 字典序最小者
//
// 合并动作在事务内完成：权限并集写入胜者、持有者全部改指胜者、败者删除。
// 全程幂等：第二次运行不再产生任何分组
func (s *permissionService) MergeDuplicateRoles(ctx context.Context, callerID string) (*dto.MergeReportResponse, error) {
	roles, err := s.repo.Role.List(ctx)
	if err != nil {
		s.logger.Error("列出角色失败", zap.Error(err))
		return nil, err
	}

	groups := make(map[string][]model.Role)
	for i := range roles {
		token := NormalizeRoleName(roles[i].Name)
		groups[token] = append(groups[token], roles[i])
	}

	tokens := make([]string, 0, len(groups))
	for token, members := range groups {
		if len(members) > 1 {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)

	report := &dto.MergeReportResponse{Groups: make([]dto.MergeGroupReport, 0, len(tokens))}

	for _, token := range tokens {
		groupReport, err := s.mergeGroup(ctx, token, groups[token], callerID)
		if err != nil {
			return nil, err
		}
		report.Groups = append(report.Groups, *groupReport)
		s.Invalidate(ctx, token)
	}

	return report, nil
}

// mergeGroup 合并单个归一化分组，事务保证权限并集与持有者改指的原子性
func (s *permissionService) mergeGroup(ctx context.Context, token string, members []model.Role, callerID string) (*dto.MergeGroupReport, error) {
	winner := pickMergeWinner(token, members)

	merged := make(map[string]struct{})
	for i := range members {
		for _, p := range members[i].Permissions {
			merged[p] = struct{}{}
		}
	}
	mergedList := make([]string, 0, len(merged))
	for p := range merged {
		mergedList = append(mergedList, p)
	}
	sort.Strings(mergedList)

	loserIDs := make([]string, 0, len(members)-1)
	var reassigned int64

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		winner.Permissions = model.StringArray(mergedList)
		winner.UpdatedBy = &callerID
		if err := txRepo.Role.Update(ctx, winner); err != nil {
			s.logger.Error("更新合并胜者失败", zap.String("role", token), zap.Error(err))
			return err
		}

		for i := range members {
			if members[i].RoleID == winner.RoleID {
				continue
			}
			n, err := txRepo.User.ReassignRole(ctx, members[i].RoleID, winner.RoleID)
			if err != nil {
				s.logger.Error("改指角色持有者失败", zap.String("role", token), zap.Error(err))
				return err
			}
			reassigned += n
			if err := txRepo.Role.Delete(ctx, members[i].RoleID); err != nil {
				s.logger.Error("删除重复角色失败", zap.String("role", token), zap.Error(err))
				return err
			}
			loserIDs = append(loserIDs, members[i].RoleID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(loserIDs)
	s.logger.Info("合并重复角色",
		zap.String("token", token),
		zap.String("winner", winner.RoleID),
		zap.Int("losers", len(loserIDs)),
		zap.Int64("reassigned_users", reassigned),
	)

	return &dto.MergeGroupReport{
		CanonicalToken:    token,
		WinnerID:          winner.RoleID,
		WinnerName:        winner.Name,
		LoserIDs:          loserIDs,
		MergedPermissions: len(mergedList),
		ReassignedUsers:   int(reassigned),
	}, nil
}

// pickMergeWinner 按确定性规则从分组中选出胜者
func pickMergeWinner(token string, members []model.Role) *model.Role {
	canonical := ""
	if grant, ok := defaultRoleGrants[token]; ok {
		canonical = grant.DisplayName
	}

	best := 0
	for i := 1; i < len(members); i++ {
		if mergeWinnerLess(&members[i], &members[best], canonical) {
			best = i
		}
	}
	return &members[best]
}

// mergeWinnerLess 判断 a 是否优先于 b 胜出
func mergeWinnerLess(a, b *model.Role, canonical string) bool {
	if len(a.Permissions) != len(b.Permissions) {
		return len(a.Permissions) > len(b.Permissions)
	}
	aCanonical := canonical != "" && a.Name == canonical
	bCanonical := canonical != "" && b.Name == canonical
	if aCanonical != bCanonical {
		return aCanonical
	}
	return a.RoleID < b.RoleID
}

// ────────────────────── ProvisionDefaults ──────────────────────

// ProvisionDefaults 幂等应用默认角色授予表：
// 缺失的角色创建，已存在的角色补齐缺失授予，不回收额外授予
func (s *permissionService) ProvisionDefaults(ctx context.Context) error {
	roles, err := s.repo.Role.List(ctx)
	if err != nil {
		return err
	}

	byToken := make(map[string][]*model.Role)
	for i := range roles {
		token := NormalizeRoleName(roles[i].Name)
		byToken[token] = append(byToken[token], &roles[i])
	}

	tokens := make([]string, 0, len(defaultRoleGrants))
	for token := range defaultRoleGrants {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	for _, token := range tokens {
		grant := defaultRoleGrants[token]
		existing := byToken[token]

		if len(existing) == 0 {
			role := &model.Role{
				Name:        grant.DisplayName,
				Permissions: model.StringArray(grant.Permissions),
			}
			if err := s.repo.Role.Create(ctx, role); err != nil {
				s.logger.Error("创建默认角色失败", zap.String("role", token), zap.Error(err))
				return err
			}
			s.logger.Info("创建默认角色", zap.String("role", grant.DisplayName))
			continue
		}

		// 优先补齐规范显示名那条记录，merge 前的重复记录不在此处理
		target := existing[0]
		for _, r := range existing {
			if r.Name == grant.DisplayName {
				target = r
				break
			}
		}

		missing := false
		for _, p := range grant.Permissions {
			if !target.Permissions.Contains(p) {
				target.Permissions = append(target.Permissions, p)
				missing = true
			}
		}
		if missing {
			if err := s.repo.Role.Update(ctx, target); err != nil {
				s.logger.Error("补齐默认角色授予失败", zap.String("role", token), zap.Error(err))
				return err
			}
			s.Invalidate(ctx, token)
			s.logger.Info("补齐默认角色授予", zap.String("role", target.Name))
		}
	}

	return nil
}

// [自证通过] internal/service/permission_service.go
