package builder

import (
	"fmt"
	"strings"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/memo"
)

// BuildMemo 构造 memo 指令，owner 作为签名者。
// 长度按 UTF-8 字节计算，上限为单条指令的 payload 上限。
func BuildMemo(owner types.Pubkey, text string) (core.Instruction, error) {
	if strings.TrimSpace(text) == "" {
		return core.Instruction{}, core.ErrEmptyMemo
	}
	if len(text) > consts.MaxMemoBytes {
		return core.Instruction{}, fmt.Errorf("%w: %d bytes, max %d", core.ErrMemoTooLong, len(text), consts.MaxMemoBytes)
	}
	return fromSDK(memo.BuildMemo(memo.BuildMemoParam{
		SignerPubkeys: []common.PublicKey{pk(owner)},
		Memo:          []byte(text),
	})), nil
}
