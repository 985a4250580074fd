package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/api/handler"
	"github.com/galadima-cyber/eRecord/internal/api/middleware"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/pkg/jwt"
	"github.com/galadima-cyber/eRecord/pkg/metrics"
	"github.com/galadima-cyber/eRecord/pkg/redis"
)

const healthTimeout = 2 * time.Second

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：黑名单检查跳过，限流降级为进程内令牌桶
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	db *gorm.DB,
	m *metrics.Metrics,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustProxies); err != nil {
		logger.Warn("trusted_proxies 配置无效，忽略", zap.Error(err))
	}

	// 避免 *redis.Client(nil) 变成非 nil 接口
	var (
		blacklist middleware.TokenChecker
		limiter   middleware.RateLimitStore
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitMB << 20))

	// ── 健康检查 / 指标 ──
	r.GET("/health", healthHandler(db, rdb))
	r.GET("/metrics", gin.WrapH(m.Handler()))

	staff := middleware.RoleAuth(model.RoleLecturer, model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, "login", cfg.RateLimit.LoginPerMinute, time.Minute, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 签到：401 使用签到接口自己的响应体
		v1.POST("/checkin",
			middleware.JWTAuth(jwtMgr, blacklist, logger, handler.CheckInUnauthorized),
			middleware.RoleAuth(model.RoleStudent),
			middleware.RateLimit(limiter, "checkin", cfg.RateLimit.CheckInPerMinute, time.Minute, logger, handler.CheckInRateLimited),
			h.CheckIn.CheckIn,
		)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			authorized.POST("/verify-location", h.CheckIn.VerifyLocation)

			// 地点模块
			locations := authorized.Group("/locations", staff)
			{
				locations.GET("", h.Location.ListLocations)
				locations.POST("", h.Location.CreateLocation)
				locations.GET("/:id", h.Location.GetLocation)
				locations.PUT("/:id", h.Location.UpdateLocation)
				locations.DELETE("/:id", h.Location.DeleteLocation)
			}

			// 签到会话模块
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("/active", h.Session.ListActiveSessions)
				sessions.GET("/:id", h.Session.GetSession)
				sessions.GET("", staff, h.Session.ListSessions)
				sessions.POST("", staff, h.Session.CreateSession)
				sessions.POST("/:id/end", staff, h.Session.EndSession)
				sessions.GET("/:id/rules", staff, h.Session.GetRule)
				sessions.PUT("/:id/rules", staff, h.Session.UpsertRule)
				sessions.GET("/:id/attendance", staff, h.Attendance.ListSessionAttendance)
				sessions.GET("/:id/attendance/export", staff, h.Attendance.ExportSessionAttendance)
			}

			authorized.GET("/attendance/me", middleware.RoleAuth(model.RoleStudent), h.Attendance.ListMyAttendance)

			// 选课名单模块
			enrollments := authorized.Group("/enrollments", staff)
			{
				enrollments.POST("/import", h.Enrollment.ImportEnrollments)
				enrollments.GET("", h.Enrollment.ListEnrollments)
			}

			// 用户管理模块（仅管理员）
			users := authorized.Group("/users", middleware.RoleAuth(model.RoleAdmin))
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.POST("/import", h.User.ImportStudents)
				users.GET("/:id", h.User.GetUser)
				users.POST("/:id/reset-password", h.User.ResetPassword)
			}
		}
	}

	return r
}

// healthHandler 数据库不可用时返回 503；Redis 为可选依赖，仅报告状态
func healthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		dbState := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			dbState = "down"
		}

		redisState := "disabled"
		if rdb != nil {
			redisState = "ok"
			if err := rdb.Ping(ctx); err != nil {
				redisState = "down"
			}
		}

		c.JSON(status, gin.H{"status": dbState, "db": dbState, "redis": redisState})
	}
}
