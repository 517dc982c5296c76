package service

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"payout-core/internal/service/payout"
	"payout-core/pkg/logger"
	"payout-core/pkg/utils/lock"
)

const runLockKey = "payout:run"

// ErrRunInProgress 其他实例正在执行结算
var ErrRunInProgress = errors.New("payout run already in progress")

// Runner 结算编排
type Runner interface {
	Run(ctx context.Context, trigger string) (*payout.Summary, error)
	RunRecovery(ctx context.Context, trigger string) (*payout.Summary, error)
}

// CronService 定时结算 + 运行锁
// 运行锁只用于避免重复劳动，防重复打款由账本预留保证
type CronService struct {
	cron     *cron.Cron
	runner   Runner
	locker   lock.DistributedLock
	schedule string
	lockTTL  time.Duration
}

func NewCronService(runner Runner, locker lock.DistributedLock, schedule string, lockTTL time.Duration) *CronService {
	if locker == nil {
		locker = lock.NopLock{}
	}
	// 标准 5 段 cron 表达式 (分级)
	return &CronService{
		cron:     cron.New(),
		runner:   runner,
		locker:   locker,
		schedule: schedule,
		lockTTL:  lockTTL,
	}
}

// Start 注册定时任务，表达式非法时返回错误
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.scheduledRun); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("Cron Service started", zap.String("schedule", s.schedule))
	return nil
}

// Stop 等待正在执行的任务结束
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Cron Service stopped")
}

func (s *CronService) scheduledRun() {
	_, err := s.Trigger(context.Background(), payout.TriggerCron)
	switch {
	case errors.Is(err, ErrRunInProgress):
		logger.Debug("定时结算: 已有实例在运行，跳过")
	case err != nil:
		logger.Error("定时结算失败", zap.Error(err))
	}
}

// Trigger 持有运行锁执行一次完整结算
func (s *CronService) Trigger(ctx context.Context, trigger string) (*payout.Summary, error) {
	return s.withLock(ctx, func() (*payout.Summary, error) {
		return s.runner.Run(ctx, trigger)
	})
}

// Recover 持有运行锁只执行恢复流程
func (s *CronService) Recover(ctx context.Context, trigger string) (*payout.Summary, error) {
	return s.withLock(ctx, func() (*payout.Summary, error) {
		return s.runner.RunRecovery(ctx, trigger)
	})
}

func (s *CronService) withLock(ctx context.Context, fn func() (*payout.Summary, error)) (*payout.Summary, error) {
	// 1. 获取分布式锁，防止多实例同时执行
	locked, err := s.locker.Acquire(ctx, runLockKey, s.lockTTL)
	if err != nil {
		// Redis 不可用时仍然执行，正确性不依赖这把锁
		logger.Warn("获取运行锁失败，继续执行", zap.Error(err))
	} else if !locked {
		return nil, ErrRunInProgress
	}
	if locked {
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), runLockKey); err != nil {
				logger.Warn("释放运行锁失败", zap.Error(err))
			}
		}()
	}

	// 2. 执行结算
	return fn()
}
