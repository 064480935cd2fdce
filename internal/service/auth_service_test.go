package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"campus-conduct/backend/config"
	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/model"
	"campus-conduct/backend/pkg/jwt"
)

func setupTestAuthService() (AuthService, *mockRepoSet) {
	set := newMockRepoSet()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-at-least-32-characters!!",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	perms := NewPermissionService(set.repo, nil, 30*time.Second, zap.NewNop())
	svc := NewAuthService(cfg, set.repo, jwtMgr, nil, perms, zap.NewNop())
	return svc, set
}

func seedUser(set *mockRepoSet, userID, studentNo, password string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	classID := "class-001"
	user := &model.User{
		UserID:       userID,
		Name:         "李四",
		StudentNo:    studentNo,
		Email:        studentNo + "@example.edu",
		PasswordHash: string(hash),
		RoleID:       "role-stu",
		ClassID:      &classID,
		Role:         &model.Role{RoleID: "role-stu", Name: "student"},
	}
	set.user.users[userID] = user
	return user
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, set := setupTestAuthService()
	seedUser(set, "user-001", "S2021001", "password123")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		StudentNo: "S2021001",
		Password:  "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("应返回 Token 对")
	}
	if result.User.StudentNo != "S2021001" {
		t.Errorf("期望 StudentNo=S2021001，实际 %s", result.User.StudentNo)
	}
	if result.User.Role != "student" {
		t.Errorf("期望 Role=student，实际 %s", result.User.Role)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, set := setupTestAuthService()
	seedUser(set, "user-001", "S2021001", "password123")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		StudentNo: "S2021001",
		Password:  "wrong",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	svc, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		StudentNo: "ghost",
		Password:  "password123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("不存在的学号也应返回 ErrInvalidCredentials（不泄露存在性），实际: %v", err)
	}
}

// ── RefreshToken 测试 ──

func TestAuthService_RefreshToken(t *testing.T) {
	svc, set := setupTestAuthService()
	seedUser(set, "user-001", "S2021001", "password123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{
		StudentNo: "S2021001", Password: "password123",
	})

	refreshed, err := svc.RefreshToken(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken 应成功: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("应换发新 AccessToken")
	}
}

func TestAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	svc, set := setupTestAuthService()
	seedUser(set, "user-001", "S2021001", "password123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{
		StudentNo: "S2021001", Password: "password123",
	})

	// access token 不能当 refresh 用
	_, err := svc.RefreshToken(context.Background(), login.AccessToken)
	if !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("期望 ErrInvalidRefresh，实际: %v", err)
	}
}

// ── GetCurrentUser 测试 ──

func TestAuthService_GetCurrentUser_WithPermissions(t *testing.T) {
	svc, set := setupTestAuthService()
	seedUser(set, "user-001", "S2021001", "password123")
	seedRole(set, "role-db", "student", CapReportsExport)

	result, err := svc.GetCurrentUser(context.Background(), "user-001")
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}
	if len(result.Permissions) != 1 || result.Permissions[0] != CapReportsExport {
		t.Errorf("期望解析出角色权限，实际 %v", result.Permissions)
	}
}

func TestAuthService_GetCurrentUser_UnknownRoleEmptyPermissions(t *testing.T) {
	svc, set := setupTestAuthService()
	seedUser(set, "user-001", "S2021001", "password123")

	result, err := svc.GetCurrentUser(context.Background(), "user-001")
	if err != nil {
		t.Fatalf("角色记录缺失不应让 /me 失败: %v", err)
	}
	if len(result.Permissions) != 0 {
		t.Errorf("期望空权限列表，实际 %v", result.Permissions)
	}
}

// ── ChangePassword 测试 ──

func TestAuthService_ChangePassword(t *testing.T) {
	svc, set := setupTestAuthService()
	user := seedUser(set, "user-001", "S2021001", "password123")
	user.MustChangePassword = true

	err := svc.ChangePassword(context.Background(), "user-001", &dto.ChangePasswordRequest{
		OldPassword: "password123",
		NewPassword: "newpassword456",
	})
	if err != nil {
		t.Fatalf("ChangePassword 应成功: %v", err)
	}

	stored := set.user.users["user-001"]
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpassword456")) != nil {
		t.Error("新密码应已生效")
	}
	if stored.MustChangePassword {
		t.Error("改密后应清除强制改密标记")
	}
}

func TestAuthService_ChangePassword_WrongOld(t *testing.T) {
	svc, set := setupTestAuthService()
	seedUser(set, "user-001", "S2021001", "password123")

	err := svc.ChangePassword(context.Background(), "user-001", &dto.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newpassword456",
	})
	if !errors.Is(err, ErrWrongOldPassword) {
		t.Errorf("期望 ErrWrongOldPassword，实际: %v", err)
	}
}

// [自证通过] internal/service/auth_service_test.go
