package safe_random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Reader 是一个全局共享的加密安全随机数生成器实例。
// 默认为 crypto/rand.Reader。
var Reader io.Reader = rand.Reader

// BytesFrom 从指定随机源读取 n 个字节。
// 随机源读取不足 n 字节时返回错误 (不会返回部分数据)。
func BytesFrom(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		r = Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("生成随机字节失败: %w", err)
	}
	return b, nil
}

// HexFrom 从指定随机源读取 n 个字节并 Hex 编码。
// 注意：返回字符串长度是 n 的两倍。
func HexFrom(r io.Reader, n int) (string, error) {
	b, err := BytesFrom(r, n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandomBytes 使用全局 Reader 生成安全随机字节。
func GenerateRandomBytes(n int) ([]byte, error) {
	return BytesFrom(Reader, n)
}

// GenerateRandomHexString 使用全局 Reader 生成 Hex 随机串。
func GenerateRandomHexString(n int) (string, error) {
	return HexFrom(Reader, n)
}
