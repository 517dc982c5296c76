package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"payout-core/internal/model"
	"payout-core/internal/service/mq"
	"payout-core/pkg/logger"
	"payout-core/pkg/monitor"
)

const (
	relayBatchSize   = 50
	relayMaxAttempts = 10
)

// RelayService 负责将本地消息表的打款事件搬运到 MQ
type RelayService struct {
	db       *gorm.DB
	producer mq.Producer
	interval time.Duration
}

func NewRelayService(db *gorm.DB, producer mq.Producer) *RelayService {
	return &RelayService{
		db:       db,
		producer: producer,
		interval: 500 * time.Millisecond, // 500ms 轮询一次
	}
}

func (s *RelayService) Start(ctx context.Context) {
	logger.Info("[Relay] 启动消息中继服务")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Relay] 停止服务")
			return
		case <-ticker.C:
			if _, err := s.ProcessPending(ctx); err != nil {
				logger.Error("[Relay] 查询消息失败", zap.Error(err))
			}
		}
	}
}

// ProcessPending 投递一批 PENDING 消息，返回成功数量
// 发送成功后才更新状态 => At-least-once，消费方按 reservation_id 幂等
func (s *RelayService) ProcessPending(ctx context.Context) (int, error) {
	// 1. 获取一批 Pending 消息 (按 id 顺序，同一创作者的事件保持有序)
	var messages []model.OutboxMessage
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id").
		Limit(relayBatchSize).
		Find(&messages).Error; err != nil {
		return 0, err
	}

	sent := 0
	for i := range messages {
		msg := &messages[i]

		// 2. 发送 MQ
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			monitor.Business.ObserveOutbox(msg.Topic, false)
			s.markFailedAttempt(ctx, msg, err)
			continue
		}
		monitor.Business.ObserveOutbox(msg.Topic, true)

		// 3. 更新状态为 SENT
		// 如果这里更新失败，下次还会发，Consumer 需做好幂等
		if err := s.db.WithContext(ctx).Model(msg).Update("status", model.OutboxSent).Error; err != nil {
			logger.Error("[Relay] 更新状态失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		sent++
	}
	if sent > 0 {
		logger.Debug("[Relay] 消息已投递", zap.Int("count", sent))
	}
	return sent, nil
}

// markFailedAttempt 累计失败次数，超过上限后标记为 FAILED 不再重试
func (s *RelayService) markFailedAttempt(ctx context.Context, msg *model.OutboxMessage, cause error) {
	updates := map[string]interface{}{"attempts": gorm.Expr("attempts + 1")}
	if msg.Attempts+1 >= relayMaxAttempts {
		updates["status"] = model.OutboxFailed
		logger.Error("[Relay] 消息多次发送失败，放弃投递", zap.Uint64("id", msg.ID), zap.Error(cause))
	} else {
		logger.Warn("[Relay] 发送消息失败", zap.Uint64("id", msg.ID), zap.Int("attempts", msg.Attempts+1), zap.Error(cause))
	}
	if err := s.db.WithContext(ctx).Model(msg).Updates(updates).Error; err != nil {
		logger.Error("[Relay] 更新失败次数失败", zap.Uint64("id", msg.ID), zap.Error(err))
	}
}
