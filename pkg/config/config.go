package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Payout  PayoutConfig  `mapstructure:"payout"`
	Gateway GatewayConfig `mapstructure:"gateway"`
}

type AppConfig struct {
	Env        string `mapstructure:"env"`
	HttpPort   string `mapstructure:"http_port"`
	AdminToken string `mapstructure:"admin_token"` // 为空则不校验 X-Admin-Token
}

type DBConfig struct {
	DSN      string `mapstructure:"dsn"` // 优先使用完整连接串 (DATABASE_URL 风格)
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// PayoutConfig 结算任务参数
type PayoutConfig struct {
	Threshold     string        `mapstructure:"threshold"` // decimal 字符串，避免浮点误差
	Currency      string        `mapstructure:"currency"`
	Purpose       string        `mapstructure:"purpose"`
	Narration     string        `mapstructure:"narration"`
	Schedule      string        `mapstructure:"schedule"` // cron 表达式 (分级)
	RecoveryGrace time.Duration `mapstructure:"recovery_grace"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BatchLimit    int           `mapstructure:"batch_limit"`
	RunLockTTL    time.Duration `mapstructure:"run_lock_ttl"`
}

// GatewayConfig 支付网关 (Razorpay X) 凭证
type GatewayConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	KeyID             string        `mapstructure:"key_id"`
	KeySecret         string        `mapstructure:"key_secret"`
	AccountNumber     string        `mapstructure:"account_number"` // 出款源账户
	Timeout           time.Duration `mapstructure:"timeout"`
	QueueIfLowBalance bool          `mapstructure:"queue_if_low_balance"`
}

var Global Config

// PostgresDSN 返回 gorm 使用的连接串
func (c DBConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

// MigrateURL 返回 golang-migrate 使用的 URL
func (c DBConfig) MigrateURL() string {
	if c.DSN != "" && strings.HasPrefix(c.DSN, "postgres") {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// ThresholdAmount 解析最低结算金额
func (c PayoutConfig) ThresholdAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Threshold))
	if err != nil {
		return decimal.Zero, fmt.Errorf("payout.threshold %q: %w", c.Threshold, err)
	}
	return d, nil
}

// Validate 校验结算任务运行所必需的配置
func (c Config) Validate() error {
	var errs []error
	threshold, err := c.Payout.ThresholdAmount()
	if err != nil {
		errs = append(errs, err)
	} else if !threshold.IsPositive() {
		errs = append(errs, errors.New("payout.threshold must be positive"))
	}
	if c.Gateway.KeyID == "" || c.Gateway.KeySecret == "" {
		errs = append(errs, errors.New("gateway.key_id and gateway.key_secret are required"))
	}
	if c.Gateway.AccountNumber == "" {
		errs = append(errs, errors.New("gateway.account_number is required"))
	}
	if c.Payout.MaxAttempts <= 0 {
		errs = append(errs, errors.New("payout.max_attempts must be positive"))
	}
	return errors.Join(errs...)
}

// Load 读取配置文件与环境变量
// paths 为空时在 "." 与 "./config" 下查找 config.yaml
func Load(paths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 环境变量设置: GATEWAY_KEY_SECRET -> gateway.key_secret
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults(v)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		log.Printf("Warning: Config file not found, using defaults and environment variables")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Init 加载配置到 Global，失败直接退出 (供 main 使用)
func Init() {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Fatal error config file: %s \n", err)
	}
	Global = cfg
	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")
	v.SetDefault("app.admin_token", "")

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "payout_user")
	v.SetDefault("db.password", "payout_password")
	v.SetDefault("db.name", "payout_db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.mq_type", "redis")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "payout_events")

	v.SetDefault("payout.threshold", "500")
	v.SetDefault("payout.currency", "INR")
	v.SetDefault("payout.purpose", "payout")
	v.SetDefault("payout.narration", "Monthly Payout")
	v.SetDefault("payout.schedule", "0 0 1 * *") // 每月 1 号 00:00
	v.SetDefault("payout.recovery_grace", 10*time.Minute)
	v.SetDefault("payout.max_attempts", 5)
	v.SetDefault("payout.batch_limit", 0)
	v.SetDefault("payout.run_lock_ttl", 30*time.Minute)

	v.SetDefault("gateway.base_url", "https://api.razorpay.com")
	v.SetDefault("gateway.key_id", "")
	v.SetDefault("gateway.key_secret", "")
	v.SetDefault("gateway.account_number", "")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.queue_if_low_balance", true)
}
