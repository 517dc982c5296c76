package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 收款账户类型
const (
	FundAccountBank = "bank_account"
	FundAccountVPA  = "vpa"
)

// Creator 创作者账本
// 本服务只修改 OutstandingAmount / TotalPaidAmount，TotalEarnedAmount 由上游计费写入
type Creator struct {
	ID                string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	FundAccountID     string          `gorm:"type:varchar(64)" json:"fund_account_id"`
	FundAccountType   string          `gorm:"type:varchar(32)" json:"fund_account_type"` // bank_account, vpa
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0;index" json:"outstanding_amount"`
	TotalPaidAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_paid_amount"`
	TotalEarnedAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_earned_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Creator) TableName() string {
	return "creators"
}

// HasFundAccount 是否已绑定可用的收款账户
func (c *Creator) HasFundAccount() bool {
	return c.FundAccountID != ""
}
