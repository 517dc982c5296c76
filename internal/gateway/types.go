package gateway

import (
	"time"

	"github.com/shopspring/decimal"
)

// 收款账户类型 (与 creators.fund_account_type 一致)
const fundAccountVPA = "vpa"

// 转账方式
const (
	ModeUPI  = "UPI"
	ModeIMPS = "IMPS"
)

// Config 网关客户端配置
type Config struct {
	BaseURL           string
	KeyID             string
	KeySecret         string
	AccountNumber     string // 出款方账户
	Currency          string
	Purpose           string
	Narration         string
	QueueIfLowBalance bool
	Timeout           time.Duration
}

// TransferRequest 单笔打款请求
type TransferRequest struct {
	FundAccountID   string
	FundAccountType string
	Amount          decimal.Decimal
	ReferenceID     string
	IdempotencyKey  string
}

// Outcome 网关返回的打款结果
// Status 为网关原始状态 (processed, queued, pending, processing, rejected, cancelled, failed, reversed)
type Outcome struct {
	GatewayPayoutID string
	ReferenceID     string
	Status          string
	FailureReason   string
}

// ModeFor 根据收款账户类型选择转账方式: VPA 走 UPI，其余走 IMPS
func ModeFor(fundAccountType string) string {
	if fundAccountType == fundAccountVPA {
		return ModeUPI
	}
	return ModeIMPS
}

// ToMinorUnits 金额转换为最小货币单位 (截断到 2 位小数后乘 100)
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Truncate(2).Shift(2).IntPart()
}

// payoutPayload POST /v1/payouts 请求体
type payoutPayload struct {
	AccountNumber     string `json:"account_number"`
	FundAccountID     string `json:"fund_account_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Mode              string `json:"mode"`
	Purpose           string `json:"purpose"`
	QueueIfLowBalance bool   `json:"queue_if_low_balance"`
	ReferenceID       string `json:"reference_id"`
	Narration         string `json:"narration"`
}

// payoutEntity 网关 payout 实体
type payoutEntity struct {
	ID            string `json:"id"`
	ReferenceID   string `json:"reference_id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
	StatusDetails *struct {
		Description string `json:"description"`
		Reason      string `json:"reason"`
	} `json:"status_details"`
}

func (p payoutEntity) wellFormed() bool {
	return p.ID != "" && p.Status != ""
}

func (p payoutEntity) outcome() *Outcome {
	reason := p.FailureReason
	if reason == "" && p.StatusDetails != nil {
		reason = p.StatusDetails.Description
	}
	return &Outcome{
		GatewayPayoutID: p.ID,
		ReferenceID:     p.ReferenceID,
		Status:          p.Status,
		FailureReason:   reason,
	}
}

// payoutCollection GET /v1/payouts 响应
type payoutCollection struct {
	Count int            `json:"count"`
	Items []payoutEntity `json:"items"`
}

// errorBody 网关结构化错误响应
type errorBody struct {
	Error *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Reason      string `json:"reason"`
	} `json:"error"`
}
