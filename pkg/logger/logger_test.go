package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	prev := Log
	core, logs := observer.New(zap.DebugLevel)
	set(zap.New(core))
	t.Cleanup(func() { set(prev) })
	return logs
}

func TestHelpersAndWith(t *testing.T) {
	logs := observe(t)

	Info("开始结算", zap.String("run_id", "r1"))
	With(zap.String("creator_id", "c1")).Warn("预留冲突")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "r1", entries[0].ContextMap()["run_id"])
		assert.Equal(t, "c1", entries[1].ContextMap()["creator_id"])
	}
}

func TestGormLoggerLevels(t *testing.T) {
	assert.Equal(t, gormlogger.Info, NewGormLogger("development").level)
	assert.Equal(t, gormlogger.Warn, NewGormLogger("production").level)

	// Silent 模式下不输出
	logs := observe(t)
	NewGormLogger("development").LogMode(gormlogger.Silent).Info(context.Background(), "hidden %d", 1)
	assert.Zero(t, logs.Len())
}
