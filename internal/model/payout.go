package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 预留状态
const (
	ReservationPending  = "pending"
	ReservationResolved = "resolved"
)

// 打款记录状态
const (
	PayoutProcessed = "processed"
	PayoutQueued    = "queued"
	PayoutRejected  = "rejected"
	PayoutFailed    = "failed" // 网关暂时性错误，仅作审计
)

// PayoutReservation 打款预留 (调用网关前落库)
// 核心设计:
// 1. 部分唯一索引保证每个创作者最多一条 pending
// 2. Version 字段实现乐观锁，多个实例竞争同一条预留时只有一个能 Claim 成功
type PayoutReservation struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatorID       string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_reservation_creator_pending,where:status = 'pending'" json:"creator_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	ReferenceID     string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference_id"`
	IdempotencyKey  string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"idempotency_key"`
	FundAccountID   string          `gorm:"type:varchar(64);not null" json:"fund_account_id"`
	FundAccountType string          `gorm:"type:varchar(32);not null" json:"fund_account_type"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // pending, resolved
	Attempts        int             `gorm:"not null;default:0" json:"attempts"`
	Version         uint64          `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	LastError       string          `gorm:"type:text" json:"last_error,omitempty"`
	LastAttemptAt   *time.Time      `json:"last_attempt_at,omitempty"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (PayoutReservation) TableName() string {
	return "payout_reservations"
}

// PayoutRecord 打款记录 (每次网关调用一条，写入后不再修改)
// failed 记录只用于审计，同一预留可以有多条，因此唯一索引排除 failed
type PayoutRecord struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID   uint64          `gorm:"not null;index" json:"reservation_id"`
	CreatorID       string          `gorm:"type:varchar(64);not null;index" json:"creator_id"`
	PayoutDate      time.Time       `gorm:"not null" json:"payout_date"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"paid_amount"`
	GatewayPayoutID string          `gorm:"type:varchar(64)" json:"gateway_payout_id,omitempty"`
	ReferenceNumber string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_record_reference,where:status <> 'failed'" json:"reference_number"`
	IdempotencyKey  string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_record_idempotency,where:status <> 'failed'" json:"idempotency_key"`
	Status          string          `gorm:"type:varchar(20);not null;index" json:"status"` // processed, queued, rejected, failed
	GatewayStatus   string          `gorm:"type:varchar(32)" json:"gateway_status,omitempty"`
	FailureReason   string          `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (PayoutRecord) TableName() string {
	return "payout_records"
}

// PayoutRun 批处理运行汇总
type PayoutRun struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID          string          `gorm:"type:varchar(36);not null;uniqueIndex" json:"run_id"`
	Trigger        string          `gorm:"type:varchar(16);not null" json:"trigger"` // cron, cli, api
	Selected       int             `gorm:"not null;default:0" json:"selected"`
	Processed      int             `gorm:"not null;default:0" json:"processed"`
	Queued         int             `gorm:"not null;default:0" json:"queued"`
	Rejected       int             `gorm:"not null;default:0" json:"rejected"`
	Failed         int             `gorm:"not null;default:0" json:"failed"`
	Skipped        int             `gorm:"not null;default:0" json:"skipped"`
	Errored        int             `gorm:"not null;default:0" json:"errored"`
	Recovered      int             `gorm:"not null;default:0" json:"recovered"`
	Stuck          int             `gorm:"not null;default:0" json:"stuck"`
	ProcessedTotal decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"processed_total"`
	Error          string          `gorm:"type:text" json:"error,omitempty"`
	StartedAt      time.Time       `gorm:"not null;index" json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

func (PayoutRun) TableName() string {
	return "payout_runs"
}
