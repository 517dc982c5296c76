package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"payout-core/internal/handler/response"
	"payout-core/pkg/errno"
)

// HealthCheck 检查账本数据库连通性
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "UP"
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				response.Error(c, errno.ErrDatabase.WithMessage(err.Error()))
				return
			}
		}
		response.Success(c, gin.H{
			"status":  status,
			"version": "1.0.0",
			"service": "payout-server",
		})
	}
}
