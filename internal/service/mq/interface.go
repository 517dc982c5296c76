package mq

import "context"

// Message 代表一条通用的业务消息
type Message struct {
	ID      string // 消息ID (Redis Stream ID 或 Kafka partition/offset)
	Topic   string // 主题 (例如 "payout_events")
	Key     string // 分区键 (creator_id), 同样用于 Kafka Partition
	Payload []byte // 消息体 (JSON)
}

// Producer 生产者接口
type Producer interface {
	// Publish 发送消息
	// key: 用于分区排序 (Partition Key)，同一创作者的事件保持有序. 传空字符串则随机分区.
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// Consumer 消费者接口
type Consumer interface {
	// Subscribe 阻塞订阅主题直到 ctx 取消
	// handler: 消息处理函数，返回 error 时不确认该消息
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error

	// Close 关闭消费者
	Close() error
}
