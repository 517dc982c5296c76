package payout

import (
	"errors"
	"strings"

	"payout-core/internal/gateway"
	"payout-core/internal/model"
)

// Result 归一化后的网关结果，Status 为 payout_records.status
type Result struct {
	Status          string
	GatewayStatus   string
	GatewayPayoutID string
	FailureReason   string
}

// Terminal 是否会把预留标记为 resolved
func (r Result) Terminal() bool {
	return r.Status != model.PayoutFailed
}

// NormalizeStatus 网关状态映射到记录状态
// 未知状态按 queued 处理: 预留 resolved，余额不动，留给下次结算
func NormalizeStatus(gatewayStatus string) string {
	switch strings.ToLower(gatewayStatus) {
	case "processed":
		return model.PayoutProcessed
	case "rejected", "cancelled", "failed", "reversed":
		return model.PayoutRejected
	default: // queued, pending, processing
		return model.PayoutQueued
	}
}

// ResultFrom 把一次网关调用的返回值转换为 Result
func ResultFrom(out *gateway.Outcome, err error) Result {
	if err == nil {
		return Result{
			Status:          NormalizeStatus(out.Status),
			GatewayStatus:   out.Status,
			GatewayPayoutID: out.GatewayPayoutID,
			FailureReason:   out.FailureReason,
		}
	}
	if gateway.IsRejected(err) {
		var gerr *gateway.Error
		errors.As(err, &gerr)
		return Result{
			Status:        model.PayoutRejected,
			GatewayStatus: gerr.Code,
			FailureReason: err.Error(),
		}
	}
	// 暂时性错误与未分类错误 (如 ctx 取消) 都按 failed 处理，预留保持 pending
	return Result{Status: model.PayoutFailed, FailureReason: err.Error()}
}
