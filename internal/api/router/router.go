package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenpick/backend/config"
	"greenpick/backend/internal/api/handler"
	"greenpick/backend/internal/api/middleware"
	"greenpick/backend/pkg/jwt"
	"greenpick/backend/pkg/redis"
)

const maxBodyBytes = 1 << 20 // 1MiB

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 全部路由需要认证
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			// 签到模块
			checkin := authorized.Group("/checkin")
			checkin.Use(middleware.RateLimit(rdb, 30, time.Minute))
			{
				checkin.POST("/token", middleware.RoleAuth("worker"), h.Checkin.IssueToken)
				checkin.POST("/scan", middleware.RoleAuth("operator", "admin"), h.Checkin.Scan)
				checkin.POST("/scan-job", middleware.RoleAuth("operator", "admin"), h.Checkin.ScanJob)
				checkin.POST("/proxy", middleware.RoleAuth("operator", "admin"), h.Checkin.Proxy)
			}

			// 报名状态模块
			signups := authorized.Group("/signups")
			{
				signups.POST("/:id/cancel", h.Attendance.CancelSignUp) // worker 本人或 operator/admin（Service 层鉴权）
				signups.POST("/:id/absent", middleware.RoleAuth("operator", "admin"), h.Attendance.MarkAbsent)
			}

			// 出勤模块
			attendance := authorized.Group("/attendance")
			attendance.Use(middleware.RoleAuth("operator", "admin"))
			{
				attendance.PUT("/:id/volume", h.Attendance.RecordVolume)
				attendance.GET("", h.Attendance.List)
				attendance.GET("/rollup", h.Attendance.Rollup)
			}

			// 结算模块
			settlements := authorized.Group("/settlements")
			{
				settlements.POST("", middleware.RoleAuth("admin"), h.Settlement.Create)
				settlements.POST("/:id/review", middleware.RoleAuth("admin"), h.Settlement.Review)
				settlements.POST("/:id/confirm", middleware.RoleAuth("worker"), h.Settlement.Confirm)
				settlements.POST("/:id/paid", middleware.RoleAuth("admin"), h.Settlement.MarkPaid)
				settlements.GET("", middleware.RoleAuth("admin"), h.Settlement.List)
				settlements.GET("/sum", middleware.RoleAuth("admin"), h.Settlement.Sum)
				settlements.GET("/sum-by-worker", middleware.RoleAuth("admin"), h.Settlement.SumByWorker)
				settlements.GET("/my", middleware.RoleAuth("worker"), h.Settlement.MyList)
				settlements.GET("/my/summary", middleware.RoleAuth("worker"), h.Settlement.MySummary)
			}

			// 审计轨迹
			authorized.GET("/audit-logs", middleware.RoleAuth("admin"), h.Audit.List)

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/settlements", middleware.RoleAuth("admin"), h.Export.ExportSettlements)
			}
		}
	}

	return r
}
