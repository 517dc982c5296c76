package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"payout-core/internal/event"
	"payout-core/internal/model"
)

// Writer 预留与对账写入，所有跨创作者的一致性都由这里的事务保证
type Writer struct {
	db    *gorm.DB
	refs  *ReferenceGenerator
	topic string
	now   func() time.Time
}

func NewWriter(db *gorm.DB, refs *ReferenceGenerator) *Writer {
	if refs == nil {
		refs = NewReferenceGenerator(nil)
	}
	return &Writer{
		db:    db,
		refs:  refs,
		topic: event.TopicPayoutEvents,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithTopic 设置 Outbox 事件主题，空值保持默认 payout_events
func (w *Writer) WithTopic(topic string) *Writer {
	if topic != "" {
		w.topic = topic
	}
	return w
}

// Reserve 在调用网关之前落库一条 pending 预留
func (w *Writer) Reserve(ctx context.Context, creator *model.Creator, amount decimal.Decimal) (*model.PayoutReservation, error) {
	var res *model.PayoutReservation
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 悲观锁: SELECT ... FOR UPDATE
		var locked model.Creator
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", creator.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ConflictError{CreatorID: creator.ID, Reason: "creator not found"}
			}
			return err
		}

		// 2. 余额可能在查询之后被修改
		if locked.OutstandingAmount.LessThan(amount) {
			return &ConflictError{CreatorID: creator.ID, Reason: "outstanding amount changed"}
		}

		// 3. 检查是否已有 pending 预留
		var count int64
		if err := tx.Model(&model.PayoutReservation{}).
			Where("creator_id = ? AND status = ?", creator.ID, model.ReservationPending).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{CreatorID: creator.ID, Reason: "pending reservation exists"}
		}

		// 4. 生成引用号与幂等键并插入
		ref, err := w.refs.Generate(creator.ID)
		if err != nil {
			return err
		}
		r := model.PayoutReservation{
			CreatorID:       creator.ID,
			Amount:          amount,
			ReferenceID:     ref.ReferenceID,
			IdempotencyKey:  ref.IdempotencyKey,
			FundAccountID:   locked.FundAccountID,
			FundAccountType: locked.FundAccountType,
			Status:          model.ReservationPending,
		}
		if err := tx.Create(&r).Error; err != nil {
			// 部分唯一索引兜底: 另一个实例抢先插入
			if isDuplicateKey(err) {
				return &ConflictError{CreatorID: creator.ID, Reason: "pending reservation exists"}
			}
			return err
		}
		res = &r
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve payout for creator %s: %w", creator.ID, err)
	}
	return res, nil
}

// Claim 乐观锁占用预留: 只有仍为 pending 且版本号未变时才成功
func (w *Writer) Claim(ctx context.Context, res *model.PayoutReservation) error {
	now := w.now()
	result := w.db.WithContext(ctx).Model(&model.PayoutReservation{}).
		Where("id = ? AND status = ? AND version = ?", res.ID, model.ReservationPending, res.Version).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"version":         gorm.Expr("version + 1"),
			"last_attempt_at": now,
			"updated_at":      now,
		})
	if result.Error != nil {
		return fmt.Errorf("claim reservation %d: %w", res.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &ConflictError{CreatorID: res.CreatorID, ReservationID: res.ID, Reason: "reservation claimed by another run"}
	}
	res.Attempts++
	res.Version++
	res.LastAttemptAt = &now
	return nil
}

// Reconcile 把网关结果写回账本 (单个事务)
func (w *Writer) Reconcile(ctx context.Context, res *model.PayoutReservation, result Result) error {
	now := w.now()
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := model.PayoutRecord{
			ReservationID:   res.ID,
			CreatorID:       res.CreatorID,
			PayoutDate:      now,
			PaidAmount:      res.Amount,
			GatewayPayoutID: result.GatewayPayoutID,
			ReferenceNumber: res.ReferenceID,
			IdempotencyKey:  res.IdempotencyKey,
			Status:          result.Status,
			GatewayStatus:   result.GatewayStatus,
			FailureReason:   result.FailureReason,
		}

		if !result.Terminal() {
			// 暂时性错误: 只写审计记录，预留保持 pending
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			return w.markAttemptFailed(tx, res, result.FailureReason, now)
		}

		// 1. pending -> resolved (条件更新)
		upd := tx.Model(&model.PayoutReservation{}).
			Where("id = ? AND status = ?", res.ID, model.ReservationPending).
			Updates(map[string]interface{}{
				"status":      model.ReservationResolved,
				"resolved_at": now,
				"last_error":  result.FailureReason,
				"updated_at":  now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return &ConflictError{CreatorID: res.CreatorID, ReservationID: res.ID, Reason: "reservation already resolved"}
		}

		// 2. 打款记录
		if err := tx.Create(&record).Error; err != nil {
			if isDuplicateKey(err) {
				return &ConflictError{CreatorID: res.CreatorID, ReservationID: res.ID, Reason: "payout record already exists"}
			}
			return err
		}

		// 3. 只有 processed 才移动余额
		if result.Status == model.PayoutProcessed {
			bal := tx.Model(&model.Creator{}).
				Where("id = ? AND outstanding_amount >= ?", res.CreatorID, res.Amount).
				Updates(map[string]interface{}{
					"outstanding_amount": gorm.Expr("COALESCE(outstanding_amount, 0) - ?", res.Amount),
					"total_paid_amount":  gorm.Expr("COALESCE(total_paid_amount, 0) + ?", res.Amount),
				})
			if bal.Error != nil {
				return bal.Error
			}
			if bal.RowsAffected == 0 {
				return errOutstandingChanged
			}
		}

		// 4. Outbox 事件与账本在同一事务
		return model.CreateOutboxMessage(tx, w.topic, res.CreatorID, event.PayoutReconciledEvent{
			ReservationID:   res.ID,
			CreatorID:       res.CreatorID,
			ReferenceID:     res.ReferenceID,
			GatewayPayoutID: result.GatewayPayoutID,
			Amount:          res.Amount.StringFixed(2),
			Status:          result.Status,
			FailureReason:   result.FailureReason,
			OccurredAt:      now,
		})
	})
	if err != nil {
		if IsConflict(err) {
			return err
		}
		return &ReconciliationError{ReservationID: res.ID, Err: err}
	}

	if result.Terminal() {
		res.Status = model.ReservationResolved
		res.ResolvedAt = &now
	}
	res.LastError = result.FailureReason
	return nil
}

func (w *Writer) markAttemptFailed(tx *gorm.DB, res *model.PayoutReservation, reason string, now time.Time) error {
	upd := tx.Model(&model.PayoutReservation{}).
		Where("id = ? AND status = ?", res.ID, model.ReservationPending).
		Updates(map[string]interface{}{"last_error": reason, "updated_at": now})
	if upd.Error != nil {
		return upd.Error
	}
	if upd.RowsAffected == 0 {
		return &ConflictError{CreatorID: res.CreatorID, ReservationID: res.ID, Reason: "reservation already resolved"}
	}
	return nil
}

// Stale 最近一次尝试 (或创建) 早于 cutoff 的 pending 预留
func (w *Writer) Stale(ctx context.Context, cutoff time.Time, limit int) ([]model.PayoutReservation, error) {
	q := w.db.WithContext(ctx).
		Where("status = ? AND COALESCE(last_attempt_at, created_at) < ?", model.ReservationPending, cutoff).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.PayoutReservation
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query stale reservations: %w", err)
	}
	return out, nil
}

// SaveRun 保存运行汇总
func (w *Writer) SaveRun(ctx context.Context, run *model.PayoutRun) error {
	if err := w.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("save payout run %s: %w", run.RunID, err)
	}
	return nil
}
