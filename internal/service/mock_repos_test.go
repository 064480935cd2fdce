package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"campus-conduct/backend/internal/model"
	"campus-conduct/backend/internal/repository"
	pkgerrors "campus-conduct/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.StudentNo
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByStudentNo(_ context.Context, studentNo string) (*model.User, error) {
	for _, u := range m.users {
		if u.StudentNo == studentNo {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, int64(len(result)), nil
}

func (m *mockUserRepo) ListByClass(_ context.Context, classID string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.ClassID != nil && *u.ClassID == classID {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, roleID string) (int64, error) {
	var count int64
	for _, u := range m.users {
		if u.RoleID == roleID {
			count++
		}
	}
	return count, nil
}

func (m *mockUserRepo) ReassignRole(_ context.Context, fromRoleID, toRoleID string) (int64, error) {
	var count int64
	for _, u := range m.users {
		if u.RoleID == fromRoleID {
			u.RoleID = toRoleID
			count++
		}
	}
	return count, nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct {
	classes map[string]*model.Class
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{classes: make(map[string]*model.Class)}
}

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	if class.ClassID == "" {
		class.ClassID = "class-" + class.Name
	}
	m.classes[class.ClassID] = class
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) List(_ context.Context) ([]model.Class, error) {
	var result []model.Class
	for _, c := range m.classes {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	m.classes[class.ClassID] = class
	return nil
}

// ── Mock RoleRepository ──

type mockRoleRepo struct {
	roles  map[string]*model.Role
	nextID int
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[string]*model.Role)}
}

func (m *mockRoleRepo) Create(_ context.Context, role *model.Role) error {
	if role.RoleID == "" {
		m.nextID++
		role.RoleID = fmt.Sprintf("role-%03d", m.nextID)
	}
	cp := *role
	m.roles[role.RoleID] = &cp
	return nil
}

func (m *mockRoleRepo) GetByID(_ context.Context, id string) (*model.Role, error) {
	if r, ok := m.roles[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepo) GetByName(_ context.Context, name string) (*model.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepo) List(_ context.Context) ([]model.Role, error) {
	var result []model.Role
	for _, r := range m.roles {
		result = append(result, *r)
	}
	return result, nil
}

func (m *mockRoleRepo) Update(_ context.Context, role *model.Role) error {
	cp := *role
	m.roles[role.RoleID] = &cp
	return nil
}

func (m *mockRoleRepo) Delete(_ context.Context, id string) error {
	delete(m.roles, id)
	return nil
}

// ── Mock SemesterLockRepository ──

type mockSemesterLockRepo struct {
	locks  map[string]*model.SemesterLock
	nextID int
}

func newMockSemesterLockRepo() *mockSemesterLockRepo {
	return &mockSemesterLockRepo{locks: make(map[string]*model.SemesterLock)}
}

func lockKeyOf(key model.SemesterKey) string {
	return fmt.Sprintf("%s:%d:%s", key.ClassID, key.Term, key.AcademicYear)
}

func (m *mockSemesterLockRepo) Create(_ context.Context, lock *model.SemesterLock) error {
	k := lockKeyOf(lock.Key())
	if _, exists := m.locks[k]; exists {
		return fmt.Errorf("duplicate key value violates unique constraint")
	}
	if lock.LockID == "" {
		m.nextID++
		lock.LockID = fmt.Sprintf("lock-%03d", m.nextID)
	}
	cp := *lock
	m.locks[k] = &cp
	return nil
}

func (m *mockSemesterLockRepo) GetByKey(_ context.Context, key model.SemesterKey) (*model.SemesterLock, error) {
	if l, ok := m.locks[lockKeyOf(key)]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// Update 模拟版本 CAS：版本不匹配时返回 ErrOptimisticLock
func (m *mockSemesterLockRepo) Update(_ context.Context, lock *model.SemesterLock) error {
	k := lockKeyOf(lock.Key())
	stored, ok := m.locks[k]
	if !ok || stored.Version != lock.Version {
		return pkgerrors.ErrOptimisticLock
	}
	lock.Version++
	cp := *lock
	m.locks[k] = &cp
	return nil
}

func (m *mockSemesterLockRepo) ListByClass(_ context.Context, classID string) ([]model.SemesterLock, error) {
	var result []model.SemesterLock
	for _, l := range m.locks {
		if l.ClassID == classID {
			result = append(result, *l)
		}
	}
	return result, nil
}

// ── Mock ActivityRepository ──

type mockActivityRepo struct {
	activities map[string]*model.Activity
	nextID     int
}

func newMockActivityRepo() *mockActivityRepo {
	return &mockActivityRepo{activities: make(map[string]*model.Activity)}
}

func (m *mockActivityRepo) Create(_ context.Context, activity *model.Activity) error {
	if activity.ActivityID == "" {
		m.nextID++
		activity.ActivityID = fmt.Sprintf("act-%03d", m.nextID)
	}
	m.activities[activity.ActivityID] = activity
	return nil
}

func (m *mockActivityRepo) GetByID(_ context.Context, id string) (*model.Activity, error) {
	if a, ok := m.activities[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockActivityRepo) List(_ context.Context, filter repository.ActivityFilter) ([]model.Activity, int64, error) {
	var result []model.Activity
	for _, a := range m.activities {
		if filter.ClassID != "" && a.ClassID != filter.ClassID {
			continue
		}
		result = append(result, *a)
	}
	return result, int64(len(result)), nil
}

func (m *mockActivityRepo) ListBySemester(_ context.Context, key model.SemesterKey) ([]model.Activity, error) {
	var result []model.Activity
	for _, a := range m.activities {
		if a.SemesterKey() == key {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockActivityRepo) Update(_ context.Context, activity *model.Activity) error {
	m.activities[activity.ActivityID] = activity
	return nil
}

func (m *mockActivityRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.activities, id)
	return nil
}

// ── Mock RegistrationRepository ──

type mockRegistrationRepo struct {
	regs       map[string]*model.Registration
	activities *mockActivityRepo // 模拟 Preload 与学期 JOIN
	nextID     int
}

func newMockRegistrationRepo(activities *mockActivityRepo) *mockRegistrationRepo {
	return &mockRegistrationRepo{
		regs:       make(map[string]*model.Registration),
		activities: activities,
	}
}

func (m *mockRegistrationRepo) attachActivity(reg *model.Registration) {
	if a, ok := m.activities.activities[reg.ActivityID]; ok {
		reg.Activity = a
	}
}

func (m *mockRegistrationRepo) Create(_ context.Context, reg *model.Registration) error {
	if reg.RegistrationID == "" {
		m.nextID++
		reg.RegistrationID = fmt.Sprintf("reg-%03d", m.nextID)
	}
	cp := *reg
	m.regs[reg.RegistrationID] = &cp
	return nil
}

func (m *mockRegistrationRepo) GetByID(_ context.Context, id string) (*model.Registration, error) {
	if r, ok := m.regs[id]; ok {
		cp := *r
		m.attachActivity(&cp)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRegistrationRepo) GetActiveByActivityAndUser(_ context.Context, activityID, userID string) (*model.Registration, error) {
	for _, r := range m.regs {
		if r.ActivityID == activityID && r.UserID == userID && r.Status != model.RegistrationCancelled {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRegistrationRepo) List(_ context.Context, filter repository.RegistrationFilter) ([]model.Registration, int64, error) {
	var result []model.Registration
	for _, r := range m.regs {
		if filter.ActivityID != "" && r.ActivityID != filter.ActivityID {
			continue
		}
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		result = append(result, *r)
	}
	return result, int64(len(result)), nil
}

// UpdateStatus 模拟版本 CAS：版本不匹配时返回 ErrOptimisticLock
func (m *mockRegistrationRepo) UpdateStatus(_ context.Context, reg *model.Registration) error {
	stored, ok := m.regs[reg.RegistrationID]
	if !ok || stored.Version != reg.Version {
		return pkgerrors.ErrOptimisticLock
	}
	reg.Version++
	cp := *reg
	cp.Activity = nil
	cp.User = nil
	m.regs[reg.RegistrationID] = &cp
	return nil
}

func (m *mockRegistrationRepo) CountActiveByActivity(_ context.Context, activityID string) (int64, error) {
	var count int64
	for _, r := range m.regs {
		if r.ActivityID == activityID &&
			(r.Status == model.RegistrationPending || r.Status == model.RegistrationApproved) {
			count++
		}
	}
	return count, nil
}

func (m *mockRegistrationRepo) CountPendingBySemester(_ context.Context, key model.SemesterKey) (int64, error) {
	var count int64
	for _, r := range m.regs {
		if r.Status != model.RegistrationPending {
			continue
		}
		if a, ok := m.activities.activities[r.ActivityID]; ok && a.SemesterKey() == key {
			count++
		}
	}
	return count, nil
}

func (m *mockRegistrationRepo) ListApprovedByUserSemester(_ context.Context, userID string, key model.SemesterKey) ([]model.Registration, error) {
	var result []model.Registration
	for _, r := range m.regs {
		if r.UserID != userID || r.Status != model.RegistrationApproved {
			continue
		}
		if a, ok := m.activities.activities[r.ActivityID]; ok && a.SemesterKey() == key {
			cp := *r
			cp.Activity = a
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockRegistrationRepo) ListApprovedBySemester(_ context.Context, key model.SemesterKey) ([]model.Registration, error) {
	var result []model.Registration
	for _, r := range m.regs {
		if r.Status != model.RegistrationApproved {
			continue
		}
		if a, ok := m.activities.activities[r.ActivityID]; ok && a.SemesterKey() == key {
			cp := *r
			cp.Activity = a
			result = append(result, cp)
		}
	}
	return result, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	atts map[string]*model.Attendance // key: registration_id
	regs *mockRegistrationRepo
}

func newMockAttendanceRepo(regs *mockRegistrationRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{atts: make(map[string]*model.Attendance), regs: regs}
}

func (m *mockAttendanceRepo) Create(_ context.Context, attendance *model.Attendance) error {
	if attendance.AttendanceID == "" {
		attendance.AttendanceID = "att-" + attendance.RegistrationID
	}
	m.atts[attendance.RegistrationID] = attendance
	return nil
}

func (m *mockAttendanceRepo) GetByRegistration(_ context.Context, registrationID string) (*model.Attendance, error) {
	if a, ok := m.atts[registrationID]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListByActivity(_ context.Context, activityID string) ([]model.Attendance, error) {
	var result []model.Attendance
	for regID, a := range m.atts {
		if r, ok := m.regs.regs[regID]; ok && r.ActivityID == activityID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) CountByRegistrations(_ context.Context, registrationIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, id := range registrationIDs {
		if _, ok := m.atts[id]; ok {
			result[id] = true
		}
	}
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications []model.Notification
	nextID        int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, notification *model.Notification) error {
	if notification.NotificationID == "" {
		m.nextID++
		notification.NotificationID = fmt.Sprintf("ntf-%03d", m.nextID)
	}
	m.notifications = append(m.notifications, *notification)
	return nil
}

func (m *mockNotificationRepo) BatchCreate(ctx context.Context, notifications []model.Notification) error {
	for i := range notifications {
		if err := m.Create(ctx, &notifications[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string, userID string) error {
	for i := range m.notifications {
		if m.notifications[i].NotificationID == id && m.notifications[i].UserID == userID {
			m.notifications[i].IsRead = true
		}
	}
	return nil
}

// ── 聚合装配 ──

// mockRepoSet 一组互相连通的 mock 仓储，便于测试跨表行为
type mockRepoSet struct {
	repo         *repository.Repository
	user         *mockUserRepo
	class        *mockClassRepo
	role         *mockRoleRepo
	lock         *mockSemesterLockRepo
	activity     *mockActivityRepo
	registration *mockRegistrationRepo
	attendance   *mockAttendanceRepo
	notification *mockNotificationRepo
}

func newMockRepoSet() *mockRepoSet {
	user := newMockUserRepo()
	class := newMockClassRepo()
	role := newMockRoleRepo()
	lock := newMockSemesterLockRepo()
	activity := newMockActivityRepo()
	registration := newMockRegistrationRepo(activity)
	attendance := newMockAttendanceRepo(registration)
	notification := newMockNotificationRepo()

	return &mockRepoSet{
		repo: &repository.Repository{
			User:         user,
			Class:        class,
			Role:         role,
			SemesterLock: lock,
			Activity:     activity,
			Registration: registration,
			Attendance:   attendance,
			Notification: notification,
		},
		user:         user,
		class:        class,
		role:         role,
		lock:         lock,
		activity:     activity,
		registration: registration,
		attendance:   attendance,
		notification: notification,
	}
}

// [自证通过] internal/service/mock_repos_test.go
