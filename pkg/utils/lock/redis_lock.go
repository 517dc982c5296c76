package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DistributedLock 定义分布式锁接口
type DistributedLock interface {
	// Acquire 尝试获取锁
	// key: 锁的唯一标识
	// ttl: 锁的过期时间
	// 返回: (是否成功, error)
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release 释放锁 (只释放自己持有的锁)
	Release(ctx context.Context, key string) error
}

// releaseScript 只有 value 与持有者 token 相同才删除，避免误删其他实例在 TTL 过期后拿到的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client 锁所需的 Redis 命令子集 (*redis.Client 满足)
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLock 基于 Redis SET NX 的实现
type RedisLock struct {
	client Client
	token  string
}

func NewRedisLock(client Client) *RedisLock {
	return &RedisLock{client: client, token: uuid.NewString()}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// SET lock:key token NX PX ttl
	return l.client.SetNX(ctx, "lock:"+key, l.token, ttl).Result()
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, l.client, []string{"lock:" + key}, l.token).Err()
}

// NopLock 不做任何互斥，未配置 Redis 时使用
// 结算正确性由账本事务保证，运行锁只用于减少重叠执行
type NopLock struct{}

func (NopLock) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NopLock) Release(context.Context, string) error                        { return nil }
