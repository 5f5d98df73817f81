package types

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// SignatureLength 交易签名长度（ed25519，64 字节）
const SignatureLength = 64

// Signature 交易签名，同时也是交易在链上的唯一标识
type Signature [SignatureLength]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func SignatureFromBase58(str string) (Signature, error) {
	var s Signature
	data, err := base58.Decode(str)
	if err != nil {
		return s, fmt.Errorf("failed to decode base58 signature %q: %w", str, err)
	}
	if len(data) != SignatureLength {
		return s, fmt.Errorf("invalid signature length: got %d, want %d", len(data), SignatureLength)
	}
	copy(s[:], data)
	return s, nil
}
