package payout

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// SelectionError 查询候选创作者失败，本次运行终止且没有任何写入
type SelectionError struct {
	Err error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("select eligible creators: %v", e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// ConflictError 并发冲突 (已有 pending 预留、余额变化、Claim 失败等)
// 调用方跳过该创作者即可，不算失败
type ConflictError struct {
	CreatorID     string
	ReservationID uint64
	Reason        string
}

func (e *ConflictError) Error() string {
	if e.ReservationID != 0 {
		return fmt.Sprintf("payout conflict for creator %s (reservation %d): %s", e.CreatorID, e.ReservationID, e.Reason)
	}
	return fmt.Sprintf("payout conflict for creator %s: %s", e.CreatorID, e.Reason)
}

// ReconciliationError 对账事务失败并已回滚，预留保持 pending
type ReconciliationError struct {
	ReservationID uint64
	Err           error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile reservation %d: %v", e.ReservationID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// IsConflict 判断是否为并发冲突
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// errOutstandingChanged 对账时未结余额已不足以扣减
var errOutstandingChanged = errors.New("outstanding amount no longer covers the payout")

// isDuplicateKey 唯一索引冲突
// TranslateError 打开时驱动会返回 gorm.ErrDuplicatedKey，其余情况按错误文本兜底
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
