package server

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"payout-core/internal/handler"
	"payout-core/pkg/monitor"
	"payout-core/pkg/validator"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	DB         *gorm.DB
	Payout     *handler.PayoutHandler
	AdminToken string
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(deps RouterDeps) *gin.Engine {
	// 0. 初始化监控指标与校验器
	monitor.Init()
	validator.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck(deps.DB))
	r.GET("/metrics", gin.WrapH(monitor.Handler()))

	// 4. 管理端 API
	admin := r.Group("/api/v1/admin", AdminAuth(deps.AdminToken))
	{
		admin.POST("/payout-runs", deps.Payout.TriggerRun)
		admin.GET("/payout-runs", deps.Payout.ListRuns)
		admin.GET("/creators/:id/payouts", deps.Payout.CreatorPayouts)
		admin.GET("/reservations", deps.Payout.ListReservations)
	}

	return r
}
