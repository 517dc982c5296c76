package payout

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"payout-core/internal/model"
)

// Selector 查询可结算的创作者 (只读)
type Selector struct {
	db        *gorm.DB
	threshold decimal.Decimal
	limit     int // 0 表示不限制
}

func NewSelector(db *gorm.DB, threshold decimal.Decimal, limit int) *Selector {
	return &Selector{db: db, threshold: threshold, limit: limit}
}

// Eligible 未结余额达到阈值且没有 pending 预留的创作者，按 id 排序
// 单条 SQL 完成，结果是语句级快照；没有候选时返回空切片
func (s *Selector) Eligible(ctx context.Context) ([]model.Creator, error) {
	pending := s.db.Model(&model.PayoutReservation{}).
		Select("1").
		Where("payout_reservations.creator_id = creators.id AND payout_reservations.status = ?", model.ReservationPending)

	q := s.db.WithContext(ctx).
		Where("creators.outstanding_amount >= ? AND creators.outstanding_amount > 0", s.threshold).
		Where("NOT EXISTS (?)", pending).
		Order("creators.id")
	if s.limit > 0 {
		q = q.Limit(s.limit)
	}

	creators := make([]model.Creator, 0)
	if err := q.Find(&creators).Error; err != nil {
		return nil, &SelectionError{Err: err}
	}
	return creators, nil
}
