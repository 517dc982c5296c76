package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// creatorIDMaxLen 与 creators.id 列宽保持一致
const creatorIDMaxLen = 64

var validate *validator.Validate

// Init 在 Gin 默认的 go-playground/validator 引擎上注册自定义规则
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validate = v
		_ = v.RegisterValidation("creator_id", validateCreatorID)
	}
}

// Var 使用同一个引擎校验单个值 (路径参数等不走 binding 的场景)
func Var(field interface{}, tag string) error {
	if validate == nil {
		Init()
	}
	if validate == nil {
		validate = validator.New()
		_ = validate.RegisterValidation("creator_id", validateCreatorID)
	}
	return validate.Var(field, tag)
}

// validateCreatorID 创作者 ID: 非空、不超过列宽、不含空白字符
func validateCreatorID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > creatorIDMaxLen {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n")
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "请求参数错误"
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		if field == "" {
			field = "参数"
		}
		param := e.Param()

		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s 不能为空", field))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s 不能小于 %s", field, param))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s 不能大于 %s", field, param))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s 必须是 [%s] 之一", field, param))
		case "creator_id":
			msgs = append(msgs, fmt.Sprintf("%s 不是合法的创作者 ID", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s 校验失败 (%s)", field, e.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
