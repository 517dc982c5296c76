package main

import (
	"context"

	"go.uber.org/zap"

	"payout-core/internal/bootstrap"
	"payout-core/internal/handler"
	"payout-core/internal/server"
	"payout-core/internal/service"
	"payout-core/internal/service/payout"
	"payout-core/pkg/config"
	"payout-core/pkg/database"
	"payout-core/pkg/logger"
)

func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	if err := config.Global.Validate(); err != nil {
		logger.Fatal("配置校验失败", zap.Error(err))
	}

	// 2. 连接数据库 (开发环境自动迁移)
	db, err := bootstrap.Database(config.Global)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3. 连接 Redis (运行锁 + Redis Streams)
	rdb, err := bootstrap.Redis(config.Global)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 4. 初始化结算编排
	orchestrator, err := bootstrap.Orchestrator(db, config.Global)
	if err != nil {
		logger.Fatal("初始化结算服务失败", zap.Error(err))
	}
	scheduler := bootstrap.Scheduler(orchestrator, rdb, config.Global)

	// 5. 初始化消息队列并启动 Outbox 中继
	producer, err := bootstrap.Producer(config.Global, rdb)
	if err != nil {
		logger.Fatal("初始化消息队列失败", zap.Error(err))
	}
	relayCtx, stopRelay := context.WithCancel(context.Background())
	go service.NewRelayService(db, producer).Start(relayCtx)

	// 6. 启动定时结算
	if err := scheduler.Start(); err != nil {
		logger.Fatal("定时任务注册失败", zap.String("schedule", config.Global.Payout.Schedule), zap.Error(err))
	}

	// 7. HTTP Router
	r := server.NewHTTPRouter(server.RouterDeps{
		DB:         db,
		Payout:     handler.NewPayoutHandler(scheduler, payout.NewQuery(db)),
		AdminToken: config.Global.App.AdminToken,
	})

	// 8. 启动应用 (阻塞)
	app := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r)
	app.OnShutdown(func(context.Context) {
		// 等待正在执行的结算结束
		scheduler.Stop()
		stopRelay()
	})
	app.Run()

	// 9. 退出后资源清理
	logger.Info("正在关闭连接...")
	if err := producer.Close(); err != nil {
		logger.Warn("关闭消息队列失败", zap.Error(err))
	}
	database.Close(db)
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Info("系统已退出")
}
