package payout

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"payout-core/pkg/safe_random"
)

const referencePrefixLen = 8

// Reference 单次预留的引用号与幂等键
type Reference struct {
	ReferenceID    string // ref_<创作者 ID 前 8 位>_<8 位随机 hex>
	IdempotencyKey string // 128 位随机 UUID，重试时复用，不重新生成
}

// ReferenceGenerator 生成引用号与幂等键，随机源可注入
type ReferenceGenerator struct {
	rand io.Reader
}

// NewReferenceGenerator r 为空时使用 crypto/rand
func NewReferenceGenerator(r io.Reader) *ReferenceGenerator {
	if r == nil {
		r = safe_random.Reader
	}
	return &ReferenceGenerator{rand: r}
}

// Generate 每次预留只调用一次
func (g *ReferenceGenerator) Generate(creatorID string) (Reference, error) {
	short := creatorID
	if r := []rune(creatorID); len(r) > referencePrefixLen {
		short = string(r[:referencePrefixLen])
	}
	suffix, err := safe_random.HexFrom(g.rand, 4)
	if err != nil {
		return Reference{}, fmt.Errorf("generate reference suffix: %w", err)
	}
	key, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return Reference{}, fmt.Errorf("generate idempotency key: %w", err)
	}
	return Reference{
		ReferenceID:    "ref_" + short + "_" + suffix,
		IdempotencyKey: key.String(),
	}, nil
}
