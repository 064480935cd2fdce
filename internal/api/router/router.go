package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-conduct/backend/config"
	"campus-conduct/backend/internal/api/handler"
	"campus-conduct/backend/internal/api/middleware"
	"campus-conduct/backend/internal/service"
	"campus-conduct/backend/pkg/jwt"
	"campus-conduct/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, svc *service.Service, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，登录接口限流防爆破）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", middleware.RateLimit(rdb, 30, time.Minute), h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户管理模块
			users := authorized.Group("/users")
			{
				users.GET("", middleware.Capability(svc.Permission, service.CapUsersManage), h.User.ListUsers)
				users.GET("/:id", middleware.Capability(svc.Permission, service.CapUsersManage), h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser) // 管理员或本人（Service 层鉴权）
				users.PUT("/:id/role", middleware.Capability(svc.Permission, service.CapUsersManage), h.User.AssignRole)
				users.POST("/:id/reset-password", middleware.Capability(svc.Permission, service.CapUsersManage), h.User.ResetPassword)
			}

			// 班级模块
			classes := authorized.Group("/classes")
			{
				classes.GET("", h.Class.ListClasses)
				classes.GET("/:id", h.Class.GetClass)
				classes.POST("", h.Class.CreateClass)
				classes.PUT("/:id", h.Class.UpdateClass)
			}

			// 角色与权限模块
			roles := authorized.Group("/roles")
			{
				roles.GET("", h.Role.ListRoles)
				roles.GET("/:id", h.Role.GetRole)
				roles.POST("", middleware.Capability(svc.Permission, service.CapRolesManage), h.Role.CreateRole)
				roles.PATCH("/:id/permissions", middleware.Capability(svc.Permission, service.CapRolesManage), h.Role.PatchPermissions)
				roles.POST("/merge-duplicates", middleware.Capability(svc.Permission, service.CapRolesManage), h.Role.MergeDuplicates)
			}

			// 活动模块
			activities := authorized.Group("/activities")
			{
				activities.GET("", h.Activity.ListActivities)
				activities.GET("/calendar.ics", h.Activity.CalendarFeed)
				activities.GET("/:id", h.Activity.GetActivity)
				activities.GET("/:id/attendances", h.Attendance.ListByActivity)
				activities.POST("", h.Activity.CreateActivity)
				activities.PUT("/:id", h.Activity.UpdateActivity)
				activities.DELETE("/:id", h.Activity.DeleteActivity)
			}

			// 报名模块
			registrations := authorized.Group("/registrations")
			{
				registrations.GET("", h.Registration.ListRegistrations)
				registrations.GET("/:id", h.Registration.GetRegistration)
				registrations.POST("", h.Registration.Register)
				registrations.POST("/bulk-approve", h.Registration.BulkApprove)
				registrations.DELETE("/:id", h.Registration.Cancel)
				registrations.PUT("/:id/approve", h.Registration.Approve)
				registrations.PUT("/:id/reject", h.Registration.Reject)
			}

			// 签到模块
			authorized.POST("/attendances", h.Attendance.Mark)

			// 学期锁定模块
			locks := authorized.Group("/semester-locks")
			{
				locks.GET("/state", h.Lock.GetState)
				locks.GET("/class/:class_id", h.Lock.ListByClass)
				locks.POST("/propose-close", h.Lock.ProposeClose)
				locks.POST("/soft-lock", h.Lock.SoftLock)
				locks.POST("/hard-lock", h.Lock.HardLock)
				locks.POST("/rollback", h.Lock.Rollback)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			// 报表导出模块
			exports := authorized.Group("/exports")
			{
				exports.GET("/conduct-report", middleware.Capability(svc.Permission, service.CapReportsExport), h.Export.ExportConductReport)
			}
		}
	}

	return r
}
