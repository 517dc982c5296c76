package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"payout-core/internal/event"
	"payout-core/internal/model"
	"payout-core/internal/service/mq"
	"payout-core/internal/service/payout"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

type published struct {
	topic, key string
	payload    []byte
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func TestRelayPublishesInOrder(t *testing.T) {
	db := newTestDB(t)
	for i, key := range []string{"creator_a", "creator_b", "creator_a"} {
		require.NoError(t, model.CreateOutboxMessage(db, event.TopicPayoutEvents, key, map[string]int{"seq": i}))
	}
	p := &fakeProducer{}
	relay := NewRelayService(db, p)

	n, err := relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, p.sent, 3)
	assert.Equal(t, "creator_a", p.sent[0].key)
	assert.Equal(t, "creator_b", p.sent[1].key)
	assert.JSONEq(t, `{"seq":2}`, string(p.sent[2].payload))

	var pending int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).Where("status = ?", model.OutboxPending).Count(&pending).Error)
	assert.Zero(t, pending)

	// 已发送的消息不会重复投递
	n, err = relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayGivesUpAfterMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, model.CreateOutboxMessage(db, event.TopicPayoutEvents, "creator_a", map[string]string{}))
	relay := NewRelayService(db, &fakeProducer{err: errors.New("broker down")})

	for i := 0; i < relayMaxAttempts; i++ {
		n, err := relay.ProcessPending(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	var msg model.OutboxMessage
	require.NoError(t, db.First(&msg).Error)
	assert.Equal(t, model.OutboxFailed, msg.Status)
	assert.Equal(t, relayMaxAttempts, msg.Attempts)
}

func TestNotifyHandle(t *testing.T) {
	s := NewNotifyService(nil, "")
	assert.Equal(t, event.TopicPayoutEvents, s.topic)

	assert.NoError(t, s.Handle(&mq.Message{ID: "1", Payload: []byte(`{"creator_id":"c1","status":"rejected","amount":"10.00"}`)}))
	assert.NoError(t, s.Handle(&mq.Message{ID: "2", Payload: []byte(`{"creator_id":"c1","status":"processed"}`)}))
	assert.NoError(t, s.Handle(&mq.Message{ID: "3", Payload: []byte(`not json`)}))
}

type fakeConsumer struct {
	msgs []*mq.Message
	got  []*mq.Message
}

func (c *fakeConsumer) Subscribe(_ context.Context, _ string, handler func(msg *mq.Message) error) error {
	for _, m := range c.msgs {
		if err := handler(m); err == nil {
			c.got = append(c.got, m)
		}
	}
	return nil
}

func (c *fakeConsumer) Close() error { return nil }

func TestNotifyStartConsumesAll(t *testing.T) {
	c := &fakeConsumer{msgs: []*mq.Message{
		{ID: "1", Payload: []byte(`{"status":"queued"}`)},
		{ID: "2", Payload: []byte(`{"status":"processed"}`)},
	}}
	require.NoError(t, NewNotifyService(c, event.TopicPayoutEvents).Start(context.Background()))
	assert.Len(t, c.got, 2)
}

type fakeRunner struct {
	mu       sync.Mutex
	runs     int
	recovers int
	block    chan struct{}
}

func (r *fakeRunner) Run(_ context.Context, trigger string) (*payout.Summary, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	return &payout.Summary{Trigger: trigger}, nil
}

func (r *fakeRunner) RunRecovery(_ context.Context, trigger string) (*payout.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recovers++
	return &payout.Summary{Trigger: trigger}, nil
}

// memLock 进程内互斥的锁实现
type memLock struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *memLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func TestTriggerHoldsRunLock(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	locker := &memLock{held: map[string]bool{}}
	s := NewCronService(runner, locker, "0 0 1 * *", time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := s.Trigger(context.Background(), payout.TriggerCron)
		done <- err
	}()

	require.Eventually(t, func() bool {
		locker.mu.Lock()
		defer locker.mu.Unlock()
		return locker.held[runLockKey]
	}, time.Second, 5*time.Millisecond)

	_, err := s.Trigger(context.Background(), payout.TriggerAPI)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(runner.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, runner.runs)
	assert.False(t, locker.held[runLockKey], "运行结束后应释放锁")

	summary, err := s.Recover(context.Background(), payout.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, payout.TriggerCLI, summary.Trigger)
	assert.Equal(t, 1, runner.recovers)
}

func TestTriggerRunsWhenLockUnavailable(t *testing.T) {
	runner := &fakeRunner{}
	s := NewCronService(runner, &memLock{err: errors.New("redis down")}, "0 0 1 * *", time.Minute)

	_, err := s.Trigger(context.Background(), payout.TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, 1, runner.runs)
}

func TestCronRejectsBadSchedule(t *testing.T) {
	s := NewCronService(&fakeRunner{}, nil, "not a cron", time.Minute)
	assert.Error(t, s.Start())

	s = NewCronService(&fakeRunner{}, nil, "0 0 1 * *", time.Minute)
	require.NoError(t, s.Start())
	s.Stop()
}
