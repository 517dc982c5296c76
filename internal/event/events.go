package event

import "time"

// TopicPayoutEvents 打款事件主题
const TopicPayoutEvents = "payout_events"

// PayoutReconciledEvent 打款对账完成事件
// Topic: payout_events, Key: creator_id (保证同一创作者的事件有序)
type PayoutReconciledEvent struct {
	ReservationID   uint64    `json:"reservation_id"`
	CreatorID       string    `json:"creator_id"`
	ReferenceID     string    `json:"reference_id"`
	GatewayPayoutID string    `json:"gateway_payout_id,omitempty"`
	Amount          string    `json:"amount"` // Decimal string
	Status          string    `json:"status"` // processed, queued, rejected
	FailureReason   string    `json:"failure_reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
