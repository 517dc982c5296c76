package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"payout-core/pkg/errno"
)

// Response 管理端统一返回结构
// 业务错误使用 HTTP 200 + code，鉴权失败与运行冲突使用对应的 HTTP 状态码
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success data 为 nil 时返回空对象
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(http.StatusOK, Response{Code: errno.OK.Code, Message: errno.OK.Message, Data: data})
}

// List 列表返回: {"items": [...], "count": n}，extra 中的字段合并到 data
func List[T any](c *gin.Context, items []T, extra gin.H) {
	if items == nil {
		items = []T{}
	}
	data := gin.H{"items": items, "count": len(items)}
	for k, v := range extra {
		data[k] = v
	}
	Success(c, data)
}

// Error 业务错误 (HTTP 200)
func Error(c *gin.Context, err error) {
	Abort(c, http.StatusOK, err)
}

// Abort 以指定状态码返回并终止后续 handler
func Abort(c *gin.Context, status int, err error) {
	code, msg := errno.Decode(err)
	c.AbortWithStatusJSON(status, Response{Code: code, Message: msg, Data: gin.H{}})
}
