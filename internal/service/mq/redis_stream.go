package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"payout-core/pkg/logger"
)

// StreamAdder XADD 所需的最小接口 (*redis.Client 满足)
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisProducer 实现 Producer 接口
type RedisProducer struct {
	client StreamAdder
	maxLen int64
}

// NewRedisProducer 创建 Redis 生产者
// maxLen > 0 时近似裁剪 Stream 长度 (MAXLEN ~)
func NewRedisProducer(client StreamAdder, maxLen int64) *RedisProducer {
	return &RedisProducer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发送消息到 Redis Stream (Stream Name = topic)
func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		logger.Warn("[MQ] 发送失败", zap.String("topic", topic), zap.Error(err))
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

// Close Redis 连接由调用方管理
func (p *RedisProducer) Close() error {
	return nil
}

// RedisConsumer 实现 Consumer 接口
type RedisConsumer struct {
	client *redis.Client
	group  string
	name   string
}

// NewRedisConsumer 创建 Redis 消费者
func NewRedisConsumer(client *redis.Client, group, name string) *RedisConsumer {
	return &RedisConsumer{
		client: client,
		group:  group,
		name:   name,
	}
}

// Subscribe 订阅 Redis Stream，阻塞直到 ctx 取消
func (c *RedisConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	// 1. 创建 Consumer Group (如果不存在)
	// XGROUP CREATE <stream> <group> 0 MKSTREAM
	err := c.client.XGroupCreateMkStream(ctx, topic, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("创建消费者组失败: %w", err)
	}

	logger.Info("[Redis MQ] 开始监听主题", zap.String("topic", topic), zap.String("group", c.group))

	for {
		if ctx.Err() != nil {
			return nil
		}
		// 2. 阻塞读取消息
		// XREADGROUP GROUP <group> <consumer> BLOCK 2000 COUNT 10 STREAMS <topic> >
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{topic, ">"},
			Count:    10,
			Block:    2 * time.Second,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue // 超时无消息
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("[Redis MQ] 读取消息错误", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		// 3. 处理消息
		for _, stream := range streams {
			for _, x := range stream.Messages {
				msg, ok := fromStream(topic, x)
				if !ok {
					logger.Error("[Redis MQ] 消息格式错误: payload 缺失", zap.String("id", x.ID))
					c.ack(ctx, topic, x.ID)
					continue
				}
				if err := handler(msg); err != nil {
					// 不 ACK，消息留在 PEL 中等待人工或 XCLAIM 处理
					logger.Error("[Redis MQ] 消息处理失败", zap.String("id", x.ID), zap.Error(err))
					continue
				}
				c.ack(ctx, topic, x.ID)
			}
		}
	}
}

// fromStream 解析 XADD 写入的字段
func fromStream(topic string, x redis.XMessage) (*Message, bool) {
	payload, ok := x.Values["payload"].(string)
	if !ok {
		return nil, false
	}
	key, _ := x.Values["key"].(string)
	return &Message{
		ID:      x.ID,
		Topic:   topic,
		Key:     key,
		Payload: []byte(payload),
	}, true
}

func (c *RedisConsumer) ack(ctx context.Context, topic, id string) {
	if err := c.client.XAck(ctx, topic, c.group, id).Err(); err != nil {
		logger.Warn("[Redis MQ] ACK 失败", zap.String("id", id), zap.Error(err))
	}
}

// Close Redis 连接由调用方管理
func (c *RedisConsumer) Close() error {
	return nil
}
