package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"campus-conduct/backend/internal/model"
)

// conductStack 一套共享仓储与时钟的完整业务服务，用于跨模块场景测试
type conductStack struct {
	set          *mockRepoSet
	clock        *fakeClock
	perms        *permissionService
	guard        *operationGuard
	lock         *lockService
	registration RegistrationService
	attendance   AttendanceService
}

func setupConductStack() *conductStack {
	set := newMockRepoSet()
	clock := newFakeClock()
	logger := zap.NewNop()

	perms := NewPermissionService(set.repo, nil, 30*time.Second, logger).(*permissionService)
	perms.now = clock.Now
	guard := NewOperationGuard(set.repo, perms, logger).(*operationGuard)
	guard.now = clock.Now
	checklist := NewClosureChecklist(PendingApprovalsCheck(set.repo))
	lock := NewLockService(set.repo, perms, checklist, 48, logger).(*lockService)
	lock.now = clock.Now
	registration := NewRegistrationService(set.repo, guard, logger).(*registrationService)
	registration.now = clock.Now
	attendance := NewAttendanceService(set.repo, guard, logger).(*attendanceService)
	attendance.now = clock.Now

	seedRole(set, "role-admin", "admin",
		CapSemesterClosePropose, CapSemesterLockSoft, CapSemesterLockHard, CapSemesterLockRollback,
		CapRegistrationsApprove, CapAttendanceMark)
	seedRole(set, "role-stu", "student")

	return &conductStack{
		set:          set,
		clock:        clock,
		perms:        perms,
		guard:        guard,
		lock:         lock,
		registration: registration,
		attendance:   attendance,
	}
}

func (cs *conductStack) seedActivity(id string, key model.SemesterKey, capacity int) {
	cs.set.activity.activities[id] = &model.Activity{
		ActivityID:   id,
		ClassID:      key.ClassID,
		Term:         key.Term,
		AcademicYear: key.AcademicYear,
		Title:        "义务劳动",
		StartsAt:     cs.clock.Now().Add(48 * time.Hour),
		EndsAt:       cs.clock.Now().Add(52 * time.Hour),
		Capacity:     capacity,
		Points:       5,
	}
}

// ── Register 测试 ──

func TestRegistrationService_Register(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)

	reg, err := cs.registration.Register(context.Background(), "user-001", "student", "act-001")
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if reg.Status != model.RegistrationPending {
		t.Errorf("新报名应为 pending，实际 %s", reg.Status)
	}
}

func TestRegistrationService_Register_ActivityNotFound(t *testing.T) {
	cs := setupConductStack()

	_, err := cs.registration.Register(context.Background(), "user-001", "student", "ghost")
	if !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("期望 ErrActivityNotFound，实际: %v", err)
	}
}

func TestRegistrationService_Register_Duplicate(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)

	cs.registration.Register(context.Background(), "user-001", "student", "act-001")
	_, err := cs.registration.Register(context.Background(), "user-001", "student", "act-001")
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Errorf("期望 ErrDuplicateRegistration，实际: %v", err)
	}
}

func TestRegistrationService_Register_CancelledAllowsReregister(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)

	reg, _ := cs.registration.Register(context.Background(), "user-001", "student", "act-001")
	if _, err := cs.registration.Cancel(context.Background(), "user-001", "student", reg.RegistrationID); err != nil {
		t.Fatalf("Cancel 应成功: %v", err)
	}
	if _, err := cs.registration.Register(context.Background(), "user-001", "student", "act-001"); err != nil {
		t.Errorf("取消后应允许重新报名: %v", err)
	}
}

func TestRegistrationService_Register_CapacityFull(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 1)

	cs.registration.Register(context.Background(), "user-001", "student", "act-001")
	_, err := cs.registration.Register(context.Background(), "user-002", "student", "act-001")
	if !errors.Is(err, ErrActivityFull) {
		t.Errorf("期望 ErrActivityFull，实际: %v", err)
	}
}

// ── Cancel 测试 ──

func TestRegistrationService_Cancel_OwnershipEnforced(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)
	reg, _ := cs.registration.Register(context.Background(), "user-001", "student", "act-001")

	_, err := cs.registration.Cancel(context.Background(), "user-002", "student", reg.RegistrationID)
	if !errors.Is(err, ErrNotRegistrationOwner) {
		t.Errorf("期望 ErrNotRegistrationOwner，实际: %v", err)
	}
}

func TestRegistrationService_Cancel_FinalizedRejected(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)
	reg, _ := cs.registration.Register(context.Background(), "user-001", "student", "act-001")
	cs.registration.Approve(context.Background(), "admin-001", "admin", reg.RegistrationID)

	_, err := cs.registration.Cancel(context.Background(), "user-001", "student", reg.RegistrationID)
	if !errors.Is(err, ErrRegistrationFinalized) {
		t.Errorf("已审结报名不可取消，期望 ErrRegistrationFinalized，实际: %v", err)
	}
}

// ── Approve / Reject 测试 ──

func TestRegistrationService_Approve_WritesNotification(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)
	reg, _ := cs.registration.Register(context.Background(), "user-001", "student", "act-001")

	approved, err := cs.registration.Approve(context.Background(), "admin-001", "admin", reg.RegistrationID)
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if approved.Status != model.RegistrationApproved {
		t.Errorf("期望 approved，实际 %s", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != "admin-001" {
		t.Error("ApprovedBy 应记录审批人")
	}
	if approved.ApprovedAt == nil || !approved.ApprovedAt.Equal(cs.clock.Now()) {
		t.Error("ApprovedAt 应取自注入时钟")
	}

	notifications, _, _ := cs.set.repo.Notification.ListByUser(context.Background(), "user-001", 0, 10)
	if len(notifications) != 1 {
		t.Fatalf("审批应落 1 条通知，实际 %d", len(notifications))
	}
	if notifications[0].Title != "报名已通过" {
		t.Errorf("期望通知标题'报名已通过'，实际 %s", notifications[0].Title)
	}
}

func TestRegistrationService_Approve_NotPending(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)
	reg, _ := cs.registration.Register(context.Background(), "user-001", "student", "act-001")
	cs.registration.Approve(context.Background(), "admin-001", "admin", reg.RegistrationID)

	_, err := cs.registration.Approve(context.Background(), "admin-001", "admin", reg.RegistrationID)
	if !errors.Is(err, ErrRegistrationNotPending) {
		t.Errorf("期望 ErrRegistrationNotPending，实际: %v", err)
	}
}

func TestRegistrationService_Approve_NoCapability(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)
	reg, _ := cs.registration.Register(context.Background(), "user-001", "student", "act-001")

	_, err := cs.registration.Approve(context.Background(), "user-002", "student", reg.RegistrationID)
	var denied *PolicyDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("期望 PolicyDeniedError，实际: %v", err)
	}
	if denied.Reason != DenyInsufficientPermission {
		t.Errorf("期望 INSUFFICIENT_PERMISSION，实际 %s", denied.Reason)
	}
}

// ── BulkApprove 测试 ──

func TestRegistrationService_BulkApprove_PartialFailure(t *testing.T) {
	cs := setupConductStack()
	cs.seedActivity("act-001", testKey(), 0)
	reg1, _ := cs.registration.Register(context.Background(), "user-001", "student", "act-001")
	reg2, _ := cs.registration.Register(context.Background(), "user-002", "student", "act-001")
	// reg2 先被单独审结
	cs.registration.Approve(context.Background(), "admin-001", "admin", reg2.RegistrationID)

	result, err := cs.registration.BulkApprove(context.Background(), "admin-001", "admin",
		[]string{reg1.RegistrationID, reg2.RegistrationID, "ghost"})
	if err != nil {
		t.Fatalf("BulkApprove 应成功: %v", err)
	}
	if len(result.Approved) != 1 || result.Approved[0] != reg1.RegistrationID {
		t.Errorf("期望仅 %s 审批成功，实际 %v", reg1.RegistrationID, result.Approved)
	}
	if len(result.Failed) != 2 {
		t.Errorf("期望 2 条失败，实际 %d", len(result.Failed))
	}
}

// ── 端到端生命周期场景 ──

// 完整走一遍学期结算流程：提议 → 冻结报名 → 审批放行 →
// 清单拦截硬锁 → 待办清零 → 锁定 → 签到被拒 → 回滚恢复
func TestConductLifecycle_FullScenario(t *testing.T) {
	cs := setupConductStack()
	ctx := context.Background()
	key := testKey()
	cs.seedActivity("act-001", key, 0)

	// 一条先行的待审批报名
	pending, err := cs.registration.Register(ctx, "user-001", "student", "act-001")
	if err != nil {
		t.Fatalf("前置报名应成功: %v", err)
	}

	// proposeClose → CLOSING
	lock, err := cs.lock.ProposeClose(ctx, key, "admin-001", "admin", nil)
	if err != nil {
		t.Fatalf("ProposeClose 应成功: %v", err)
	}
	if lock.State != model.LockStateClosing {
		t.Fatalf("期望 CLOSING，实际 %s", lock.State)
	}

	// CLOSING 下 register 被拒，拒绝原因 CLOSING
	_, err = cs.registration.Register(ctx, "user-002", "student", "act-001")
	var denied *PolicyDeniedError
	if !errors.As(err, &denied) || denied.Reason != DenyClosing {
		t.Fatalf("CLOSING 下 register 应被拒(CLOSING)，实际: %v", err)
	}

	// CLOSING 下 approve 放行：先留一条新报名没法建，审批既有这条之前先确认 hardLock 被清单拦截
	_, err = cs.lock.HardLock(ctx, key, "admin-001", "admin", nil)
	var checklistErr *ChecklistError
	if !errors.As(err, &checklistErr) {
		t.Fatalf("待审批存在时 HardLock 应被清单拦截，实际: %v", err)
	}
	if len(checklistErr.Reasons) != 1 || checklistErr.Reasons[0] != "1 条报名待审批" {
		t.Fatalf("期望原因 [1 条报名待审批]，实际 %v", checklistErr.Reasons)
	}

	// 审批通过：CLOSING 仍允许
	if _, err := cs.registration.Approve(ctx, "admin-001", "admin", pending.RegistrationID); err != nil {
		t.Fatalf("CLOSING 下 approve 应放行: %v", err)
	}

	// 待办清零后 hardLock 成功
	lock, err = cs.lock.HardLock(ctx, key, "admin-001", "admin", nil)
	if err != nil {
		t.Fatalf("待办清零后 HardLock 应成功: %v", err)
	}
	if lock.State != model.LockStateLocked {
		t.Fatalf("期望 LOCKED，实际 %s", lock.State)
	}

	// LOCKED 下签到被拒，拒绝原因 LOCKED
	_, err = cs.attendance.Mark(ctx, "admin-001", "admin", pending.RegistrationID)
	if !errors.As(err, &denied) || denied.Reason != DenyLocked {
		t.Fatalf("LOCKED 下 attend 应被拒(LOCKED)，实际: %v", err)
	}

	// rollback → ACTIVE，register 恢复放行
	lock, err = cs.lock.Rollback(ctx, key, "admin-001", "admin", nil)
	if err != nil {
		t.Fatalf("Rollback 应成功: %v", err)
	}
	if lock.State != model.LockStateActive {
		t.Fatalf("期望 ACTIVE，实际 %s", lock.State)
	}
	if _, err := cs.registration.Register(ctx, "user-002", "student", "act-001"); err != nil {
		t.Fatalf("回滚后 register 应恢复放行: %v", err)
	}
}

// [自证通过] internal/service/registration_service_test.go
