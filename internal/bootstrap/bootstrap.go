package bootstrap

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"payout-core/internal/gateway"
	"payout-core/internal/model"
	"payout-core/internal/service"
	"payout-core/internal/service/mq"
	"payout-core/internal/service/payout"
	"payout-core/pkg/config"
	"payout-core/pkg/database"
	"payout-core/pkg/logger"
	"payout-core/pkg/utils/lock"
)

// streamMaxLen Redis Stream 近似保留的事件条数
const streamMaxLen = 100000

// Database 连接账本，开发环境自动迁移 Schema
func Database(cfg config.Config) (*gorm.DB, error) {
	db, err := database.ConnectPostgres(cfg.DB.PostgresDSN(), cfg.App.Env)
	if err != nil {
		return nil, err
	}
	if cfg.App.Env == "development" {
		logger.Info("开发环境: 自动迁移 Schema (GORM AutoMigrate)")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			database.Close(db)
			return nil, fmt.Errorf("数据库自动迁移失败: %w", err)
		}
	} else {
		logger.Info("跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
	}
	return db, nil
}

// Redis 未配置地址时返回 nil (运行锁退化为 NopLock)
func Redis(cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	return database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}

// GatewayConfig 把配置映射为网关客户端参数
func GatewayConfig(cfg config.Config) gateway.Config {
	return gateway.Config{
		BaseURL:           cfg.Gateway.BaseURL,
		KeyID:             cfg.Gateway.KeyID,
		KeySecret:         cfg.Gateway.KeySecret,
		AccountNumber:     cfg.Gateway.AccountNumber,
		Currency:          cfg.Payout.Currency,
		Purpose:           cfg.Payout.Purpose,
		Narration:         cfg.Payout.Narration,
		QueueIfLowBalance: cfg.Gateway.QueueIfLowBalance,
		Timeout:           cfg.Gateway.Timeout,
	}
}

// Orchestrator 组装 Selector / Writer / 网关
func Orchestrator(db *gorm.DB, cfg config.Config) (*payout.Orchestrator, error) {
	threshold, err := cfg.Payout.ThresholdAmount()
	if err != nil {
		return nil, err
	}
	writer := payout.NewWriter(db, payout.NewReferenceGenerator(nil)).WithTopic(cfg.Kafka.Topic)
	selector := payout.NewSelector(db, threshold, cfg.Payout.BatchLimit)
	client := gateway.NewClient(GatewayConfig(cfg), nil)
	return payout.NewOrchestrator(selector, writer, client, payout.Options{
		RecoveryGrace: cfg.Payout.RecoveryGrace,
		MaxAttempts:   cfg.Payout.MaxAttempts,
		Currency:      cfg.Payout.Currency,
	}), nil
}

// Locker Redis 可用时使用分布式锁
func Locker(rdb *redis.Client) lock.DistributedLock {
	if rdb == nil {
		return lock.NopLock{}
	}
	return lock.NewRedisLock(rdb)
}

// Scheduler 带运行锁的结算入口 (cron / API / CLI 共用)
func Scheduler(runner service.Runner, rdb *redis.Client, cfg config.Config) *service.CronService {
	return service.NewCronService(runner, Locker(rdb), cfg.Payout.Schedule, cfg.Payout.RunLockTTL)
}

// Producer 根据 redis.mq_type 选择 Kafka 或 Redis Streams
func Producer(cfg config.Config, rdb *redis.Client) (mq.Producer, error) {
	if cfg.Redis.MQType == "kafka" {
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, errors.New("kafka.brokers 未配置")
		}
		logger.Info("使用 Kafka 作为消息队列", zap.Strings("brokers", cfg.Kafka.Brokers))
		return mq.NewKafkaProducer(cfg.Kafka.Brokers), nil
	}
	if rdb == nil {
		return nil, errors.New("redis.addr 未配置，无法使用 Redis Streams")
	}
	logger.Info("使用 Redis Streams 作为消息队列")
	return mq.NewRedisProducer(rdb, streamMaxLen), nil
}

// Consumer 与 Producer 使用同一种消息队列
func Consumer(cfg config.Config, rdb *redis.Client, group, name string) (mq.Consumer, error) {
	if cfg.Redis.MQType == "kafka" {
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, errors.New("kafka.brokers 未配置")
		}
		return mq.NewKafkaConsumer(cfg.Kafka.Brokers, group), nil
	}
	if rdb == nil {
		return nil, errors.New("redis.addr 未配置，无法使用 Redis Streams")
	}
	return mq.NewRedisConsumer(rdb, group, name), nil
}
