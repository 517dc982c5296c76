package payout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"payout-core/internal/gateway"
	"payout-core/internal/model"
)

// newTestDB 每个测试独立的内存 SQLite 账本
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

func seedCreator(t *testing.T, db *gorm.DB, id, outstanding, faType string) model.Creator {
	t.Helper()
	c := model.Creator{
		ID:                id,
		FundAccountID:     "fa_" + id,
		FundAccountType:   faType,
		OutstandingAmount: decimal.RequireFromString(outstanding),
		TotalPaidAmount:   decimal.Zero,
		TotalEarnedAmount: decimal.RequireFromString(outstanding),
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func loadCreator(t *testing.T, db *gorm.DB, id string) model.Creator {
	t.Helper()
	var c model.Creator
	require.NoError(t, db.First(&c, "id = ?", id).Error)
	return c
}

func loadReservation(t *testing.T, db *gorm.DB, id uint64) model.PayoutReservation {
	t.Helper()
	var r model.PayoutReservation
	require.NoError(t, db.First(&r, id).Error)
	return r
}

func recordsFor(t *testing.T, db *gorm.DB, creatorID string) []model.PayoutRecord {
	t.Helper()
	var out []model.PayoutRecord
	require.NoError(t, db.Where("creator_id = ?", creatorID).Order("id").Find(&out).Error)
	return out
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// fakeGateway 按幂等键去重的网关: 同一个 key 只产生一笔转账
type fakeGateway struct {
	mu        sync.Mutex
	status    string                      // 新转账的状态，默认 processed
	byKey     map[string]*gateway.Outcome // 幂等键 -> 转账
	byRef     map[string]*gateway.Outcome
	requests  []gateway.TransferRequest
	lookups   int
	createErr func(req gateway.TransferRequest) error // 返回错误且不产生转账
	dropReply bool                                    // 产生转账但返回暂时性错误 (模拟响应丢失)
	lookupErr error
	onCreate  func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		status: "processed",
		byKey:  map[string]*gateway.Outcome{},
		byRef:  map[string]*gateway.Outcome{},
	}
}

func (f *fakeGateway) CreatePayout(_ context.Context, req gateway.TransferRequest) (*gateway.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		if err := f.createErr(req); err != nil {
			return nil, err
		}
	}
	out, ok := f.byKey[req.IdempotencyKey]
	if !ok {
		out = &gateway.Outcome{
			GatewayPayoutID: fmt.Sprintf("pout_%d", len(f.byKey)+1),
			ReferenceID:     req.ReferenceID,
			Status:          f.status,
		}
		f.byKey[req.IdempotencyKey] = out
		f.byRef[req.ReferenceID] = out
	}
	if f.dropReply {
		return nil, &gateway.Error{Kind: gateway.KindTransient, Err: context.DeadlineExceeded}
	}
	cp := *out
	return &cp, nil
}

func (f *fakeGateway) FindByReference(_ context.Context, referenceID string) (*gateway.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	out, ok := f.byRef[referenceID]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	cp := *out
	return &cp, nil
}

func (f *fakeGateway) transfers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byKey)
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func transientErr() error {
	return &gateway.Error{Kind: gateway.KindTransient, Err: context.DeadlineExceeded}
}

// newTestOrchestrator 阈值 500，恢复宽限 10 分钟，最多 3 次尝试
func newTestOrchestrator(db *gorm.DB, gw Gateway) *Orchestrator {
	writer := NewWriter(db, nil)
	selector := NewSelector(db, decimal.RequireFromString("500"), 0)
	return NewOrchestrator(selector, writer, gw, Options{
		RecoveryGrace: 10 * time.Minute,
		MaxAttempts:   3,
		Currency:      "INR",
	})
}

// advance 把编排器的时钟向后拨，使已有的 pending 预留超过宽限期
func advance(o *Orchestrator, d time.Duration) {
	o.now = func() time.Time { return time.Now().UTC().Add(d) }
}
