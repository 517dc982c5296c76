package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"payout-core/internal/event"
	"payout-core/internal/model"
	"payout-core/internal/service/mq"
	"payout-core/pkg/logger"
)

// NotifyService 消费打款事件并通知运营 (当前输出结构化日志，由日志告警接入)
type NotifyService struct {
	consumer mq.Consumer
	topic    string
}

func NewNotifyService(consumer mq.Consumer, topic string) *NotifyService {
	if topic == "" {
		topic = event.TopicPayoutEvents
	}
	return &NotifyService{consumer: consumer, topic: topic}
}

// Start 阻塞直到 ctx 取消
func (s *NotifyService) Start(ctx context.Context) error {
	return s.consumer.Subscribe(ctx, s.topic, s.Handle)
}

// Handle 处理一条打款事件
// 无法解析的消息直接丢弃 (返回 nil)，避免阻塞后续消息
func (s *NotifyService) Handle(msg *mq.Message) error {
	var evt event.PayoutReconciledEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		logger.Error("[Notify] 无法解析打款事件", zap.String("id", msg.ID), zap.Error(err))
		return nil
	}

	fields := []zap.Field{
		zap.String("creator_id", evt.CreatorID),
		zap.Uint64("reservation_id", evt.ReservationID),
		zap.String("reference_id", evt.ReferenceID),
		zap.String("gateway_payout_id", evt.GatewayPayoutID),
		zap.String("amount", evt.Amount),
		zap.String("status", evt.Status),
	}
	switch evt.Status {
	case model.PayoutProcessed:
		logger.Info("[Notify] 打款成功", fields...)
	case model.PayoutQueued:
		logger.Info("[Notify] 打款已排队，余额保留到下次结算", fields...)
	default:
		fields = append(fields, zap.String("failure_reason", evt.FailureReason))
		logger.Warn("[Notify] 打款被拒绝，需要人工关注", fields...)
	}
	return nil
}
