package builder

import (
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/shopspring/decimal"
)

// BuildTransfer 构造原生币转账指令，amount 为 SOL（9 位精度）
func BuildTransfer(from types.Pubkey, to string, amount decimal.Decimal) (core.Instruction, error) {
	lamports, err := LamportsFromSOL(amount)
	if err != nil {
		return core.Instruction{}, err
	}
	return BuildTransferLamports(from, to, lamports)
}

// BuildTransferLamports 与 BuildTransfer 相同，但金额已是 lamports
func BuildTransferLamports(from types.Pubkey, to string, lamports uint64) (core.Instruction, error) {
	if lamports == 0 {
		return core.Instruction{}, core.ErrInvalidAmount
	}
	dest, err := parseAddress(to)
	if err != nil {
		return core.Instruction{}, err
	}
	return fromSDK(system.Transfer(system.TransferParam{
		From:   pk(from),
		To:     pk(dest),
		Amount: lamports,
	})), nil
}
