package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "payout-core"

var (
	// Log 供需要 With 派生子 logger 的调用方使用 (调用位置准确)
	Log *zap.Logger
	// helper 供本包的 Info/Warn 等函数使用，跳过一层包装
	helper *zap.Logger
)

func init() {
	// 未 Init 时 (单元测试) 所有日志丢弃
	set(zap.NewNop())
}

func set(l *zap.Logger) {
	Log = l
	helper = l.WithOptions(zap.AddCallerSkip(1))
}

// Init 按环境初始化全局 logger
// production: JSON 输出 + ISO8601 时间，附带 service/host 字段
// 其他: 彩色控制台输出，Debug 级别
func Init(env string) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.TimeKey = "ts"
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	fields := []zap.Field{zap.String("service", serviceName)}
	if host, err := os.Hostname(); err == nil {
		fields = append(fields, zap.String("host", host))
	}

	l, err := cfg.Build(zap.Fields(fields...))
	if err != nil {
		panic(err)
	}
	set(l)

	// 第三方库通过 zap.L() 打印的日志也走同一个输出
	zap.ReplaceGlobals(l)
}

// With 派生带固定字段的子 logger
func With(fields ...zap.Field) *zap.Logger {
	return Log.With(fields...)
}

// Sync 刷新缓冲
func Sync() {
	_ = Log.Sync()
}

func Info(msg string, fields ...zap.Field)  { helper.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { helper.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { helper.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { helper.Fatal(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { helper.Debug(msg, fields...) }
