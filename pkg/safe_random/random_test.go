package safe_random

import (
	"bytes"
	"encoding/hex"
	"testing"
	"testing/iotest"
)

func TestGenerateRandomBytes(t *testing.T) {
	n := 32
	b, err := GenerateRandomBytes(n)
	if err != nil {
		t.Fatalf("GenerateRandomBytes 失败: %v", err)
	}
	if len(b) != n {
		t.Errorf("GenerateRandomBytes 返回了 %d 字节, 期望 %d", len(b), n)
	}

	// 简单的随机性检查（极不可能全为零）
	allZero := true
	for _, v := range b {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("GenerateRandomBytes 返回了全零数据，可能未正确生成随机数")
	}
}

func TestGenerateRandomHexString(t *testing.T) {
	n := 16
	s, err := GenerateRandomHexString(n)
	if err != nil {
		t.Fatalf("GenerateRandomHexString 失败: %v", err)
	}

	decoded, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("解码 Hex 字符串失败: %v", err)
	}

	if len(decoded) != n {
		t.Errorf("GenerateRandomHexString 底层字节长度 = %d, 期望 %d", len(decoded), n)
	}
}

func TestHexFromDeterministicReader(t *testing.T) {
	r := bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0x01})
	s, err := HexFrom(r, 4)
	if err != nil {
		t.Fatalf("HexFrom 失败: %v", err)
	}
	if s != "deadbeef" {
		t.Errorf("HexFrom = %q, 期望 deadbeef", s)
	}
}

func TestBytesFromShortReader(t *testing.T) {
	if _, err := BytesFrom(bytes.NewReader([]byte{1, 2}), 4); err == nil {
		t.Error("随机源不足时应返回错误")
	}
	if _, err := BytesFrom(iotest.ErrReader(iotest.ErrTimeout), 4); err == nil {
		t.Error("随机源出错时应返回错误")
	}
}
