package payout

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"payout-core/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ErrCreatorNotFound 创作者不存在
var ErrCreatorNotFound = errors.New("creator not found")

// Query 管理端只读查询
type Query struct {
	db *gorm.DB
}

func NewQuery(db *gorm.DB) *Query {
	return &Query{db: db}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// RecentRuns 最近的运行汇总
func (q *Query) RecentRuns(ctx context.Context, limit int) ([]model.PayoutRun, error) {
	runs := make([]model.PayoutRun, 0)
	err := q.db.WithContext(ctx).Order("started_at DESC, id DESC").Limit(clampLimit(limit)).Find(&runs).Error
	return runs, err
}

// CreatorPayouts 某个创作者的打款记录 (新的在前)
func (q *Query) CreatorPayouts(ctx context.Context, creatorID string, limit int) ([]model.PayoutRecord, error) {
	var count int64
	if err := q.db.WithContext(ctx).Model(&model.Creator{}).Where("id = ?", creatorID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrCreatorNotFound
	}
	records := make([]model.PayoutRecord, 0)
	err := q.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("id DESC").
		Limit(clampLimit(limit)).
		Find(&records).Error
	return records, err
}

// Reservations 按状态列出预留，status 为空表示全部
func (q *Query) Reservations(ctx context.Context, status string, limit int) ([]model.PayoutReservation, error) {
	tx := q.db.WithContext(ctx).Order("id")
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	out := make([]model.PayoutReservation, 0)
	err := tx.Limit(clampLimit(limit)).Find(&out).Error
	return out, err
}
