package gateway

import (
	"errors"
	"fmt"
)

// Kind 网关错误分类
type Kind string

const (
	// KindTransient 结果未知 (网络错误、超时、5xx 等)，使用同一幂等键重试是安全的
	KindTransient Kind = "transient"
	// KindRejected 网关明确拒绝，不会产生转账
	KindRejected Kind = "rejected"
)

// ErrNotFound 按 reference_id 查询不到打款
var ErrNotFound = errors.New("payout not found")

// Error 网关调用错误
type Error struct {
	Kind        Kind
	StatusCode  int // 0 表示未收到响应
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	switch {
	case e.Code != "" || e.Description != "":
		return fmt.Sprintf("gateway %s (http %d): %s %s", e.Kind, e.StatusCode, e.Code, e.Description)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s (http %d): %v", e.Kind, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("gateway %s (http %d)", e.Kind, e.StatusCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRejected 判断是否为网关拒绝
func IsRejected(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == KindRejected
}

func transient(status int, err error) *Error {
	return &Error{Kind: KindTransient, StatusCode: status, Err: err}
}
