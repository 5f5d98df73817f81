package types

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeyLength 公钥固定长度（字节）
const PubkeyLength = 32

// ErrInvalidPubkey 表示文本无法按 base58 解析为 32 字节公钥
var ErrInvalidPubkey = errors.New("invalid pubkey")

type Pubkey [PubkeyLength]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

func (p Pubkey) Bytes() []byte {
	return p[:]
}

// ParsePubkey 解析 base58 字符串为 Pubkey，失败时返回包装了 ErrInvalidPubkey 的 error（用于不信任输入路径）
func ParsePubkey(s string) (Pubkey, error) {
	if s == "" {
		return Pubkey{}, fmt.Errorf("%w: empty input", ErrInvalidPubkey)
	}
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("%w: decode base58 %q: %v", ErrInvalidPubkey, s, err)
	}
	if len(data) != PubkeyLength {
		return Pubkey{}, fmt.Errorf("%w: got %d bytes, want %d, input=%q", ErrInvalidPubkey, len(data), PubkeyLength, s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

// PubkeyFromBase58 用于常量等可信输入，解析失败直接 panic
func PubkeyFromBase58(s string) Pubkey {
	p, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PubkeyFromBytes 从原始字节构造 Pubkey，长度必须为 32
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	if len(b) != PubkeyLength {
		return Pubkey{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPubkey, len(b), PubkeyLength)
	}
	var p Pubkey
	copy(p[:], b)
	return p, nil
}
