package cmd

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"payout-core/internal/bootstrap"
	"payout-core/pkg/config"
	"payout-core/pkg/database"
	"payout-core/pkg/logger"
)

var configDir string

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "payout-cli",
	Short: "创作者结算命令行工具",
	Long: `创作者打款结算的运维工具。
支持手动执行一次结算、只执行遗留预留的恢复流程、查看预留记录以及订阅打款事件。`,
	SilenceUsage: true,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config.yaml 所在目录 (默认 . 与 ./config)")
}

// runtime 子命令共用的依赖
type runtime struct {
	cfg config.Config
	db  *gorm.DB
	rdb *redis.Client
}

// setup 加载配置、初始化日志并连接数据库
// Redis 连接失败不影响执行 (运行锁退化为 NopLock)
func setup(needGateway bool) (*runtime, error) {
	var (
		cfg config.Config
		err error
	)
	if configDir != "" {
		cfg, err = config.Load(configDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if needGateway {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logger.Init(cfg.App.Env)

	db, err := bootstrap.Database(cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := bootstrap.Redis(cfg)
	if err != nil {
		logger.Warn("Redis 不可用，跳过运行锁", zap.Error(err))
		rdb = nil
	}
	return &runtime{cfg: cfg, db: db, rdb: rdb}, nil
}

func (r *runtime) close() {
	database.Close(r.db)
	if r.rdb != nil {
		_ = r.rdb.Close()
	}
	logger.Sync()
}
