package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"payout-core/internal/handler/response"
	"payout-core/pkg/errno"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuth 校验 X-Admin-Token，token 为空时不校验 (本地开发)
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Abort(c, http.StatusUnauthorized, errno.ErrUnauthorized)
			return
		}
		c.Next()
	}
}
