package builder

import (
	"fmt"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// fromSDK 将 SDK 指令转换为 core.Instruction，账户顺序保持不变
func fromSDK(ix sdktypes.Instruction) core.Instruction {
	accounts := make([]core.AccountRef, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		accounts = append(accounts, core.AccountRef{
			Address:    types.Pubkey(meta.PubKey),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		})
	}
	data := make([]byte, len(ix.Data))
	copy(data, ix.Data)
	return core.Instruction{
		ProgramID: types.Pubkey(ix.ProgramID),
		Accounts:  accounts,
		Data:      data,
	}
}

func pk(p types.Pubkey) common.PublicKey {
	return common.PublicKey(p)
}

func parseAddress(s string) (types.Pubkey, error) {
	addr, err := types.ParsePubkey(s)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}
	return addr, nil
}
