package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-conduct/backend/internal/model"
)

// ── Evaluate 语义 ──

func TestClosureChecklist_Evaluate_CollectsAllFailures(t *testing.T) {
	failA := func(_ context.Context, _ model.SemesterKey) (bool, string, error) {
		return false, "原因A", nil
	}
	pass := func(_ context.Context, _ model.SemesterKey) (bool, string, error) {
		return true, "", nil
	}
	failB := func(_ context.Context, _ model.SemesterKey) (bool, string, error) {
		return false, "原因B", nil
	}

	checklist := NewClosureChecklist(failA, pass, failB)
	passed, reasons, err := checklist.Evaluate(context.Background(), testKey())
	if err != nil {
		t.Fatalf("Evaluate 应成功: %v", err)
	}
	if passed {
		t.Error("存在未通过项时 passed 应为 false")
	}
	// 不短路：两条失败原因都要收集
	if len(reasons) != 2 || reasons[0] != "原因A" || reasons[1] != "原因B" {
		t.Errorf("应收集全部未通过原因，实际 %v", reasons)
	}
}

func TestClosureChecklist_Evaluate_CheckErrorFailsClosed(t *testing.T) {
	broken := func(_ context.Context, _ model.SemesterKey) (bool, string, error) {
		return false, "", errors.New("db down")
	}

	checklist := NewClosureChecklist(broken)
	passed, reasons, err := checklist.Evaluate(context.Background(), testKey())
	if err != nil {
		t.Fatalf("Evaluate 应成功: %v", err)
	}
	if passed {
		t.Error("检查执行失败时应视为不通过")
	}
	if len(reasons) != 1 {
		t.Fatalf("应有 1 条原因，实际 %d", len(reasons))
	}
}

// ── UnattendedActivitiesCheck ──

func seedApprovedRegistration(set *mockRepoSet, key model.SemesterKey, id string, endsAt time.Time) {
	activityID := "act-" + id
	set.activity.activities[activityID] = &model.Activity{
		ActivityID:   activityID,
		ClassID:      key.ClassID,
		Term:         key.Term,
		AcademicYear: key.AcademicYear,
		Title:        "社区服务",
		EndsAt:       endsAt,
	}
	set.registration.regs[id] = &model.Registration{
		RegistrationID: id,
		ActivityID:     activityID,
		UserID:         "user-001",
		Status:         model.RegistrationApproved,
	}
}

func TestUnattendedActivitiesCheck_FailsOnEndedWithoutCheckIn(t *testing.T) {
	set := newMockRepoSet()
	clock := newFakeClock()
	key := testKey()

	// 已结束且未签到
	seedApprovedRegistration(set, key, "reg-001", clock.Now().Add(-2*time.Hour))

	check := UnattendedActivitiesCheck(set.repo, clock.Now)
	ok, reason, err := check(context.Background(), key)
	if err != nil {
		t.Fatalf("检查应成功: %v", err)
	}
	if ok {
		t.Error("已结束活动存在未签到报名时应不通过")
	}
	if reason != "1 条已结束活动的报名未签到" {
		t.Errorf("原因描述不符，实际 %q", reason)
	}
}

func TestUnattendedActivitiesCheck_PassesWhenCheckedIn(t *testing.T) {
	set := newMockRepoSet()
	clock := newFakeClock()
	key := testKey()

	seedApprovedRegistration(set, key, "reg-001", clock.Now().Add(-2*time.Hour))
	set.attendance.atts["reg-001"] = &model.Attendance{
		AttendanceID:   "att-001",
		RegistrationID: "reg-001",
		CheckedInAt:    clock.Now().Add(-time.Hour),
		MarkedBy:       "user-900",
	}

	check := UnattendedActivitiesCheck(set.repo, clock.Now)
	ok, _, err := check(context.Background(), key)
	if err != nil {
		t.Fatalf("检查应成功: %v", err)
	}
	if !ok {
		t.Error("全部已签到时应通过")
	}
}

func TestUnattendedActivitiesCheck_IgnoresOngoingActivities(t *testing.T) {
	set := newMockRepoSet()
	clock := newFakeClock()
	key := testKey()

	// 活动尚未结束，未签到不阻塞锁定
	seedApprovedRegistration(set, key, "reg-001", clock.Now().Add(3*time.Hour))

	check := UnattendedActivitiesCheck(set.repo, clock.Now)
	ok, _, err := check(context.Background(), key)
	if err != nil {
		t.Fatalf("检查应成功: %v", err)
	}
	if !ok {
		t.Error("进行中的活动不应计入未签到检查")
	}
}

// [自证通过] internal/service/checklist_test.go
