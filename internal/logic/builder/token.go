package builder

import (
	"fmt"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/shopspring/decimal"
)

// AssociatedTokenAddress 计算 wallet 在 mint 下的 ATA 地址（SPL Token 程序）
func AssociatedTokenAddress(wallet, mint types.Pubkey) (types.Pubkey, error) {
	ata, _, err := common.FindAssociatedTokenAddress(pk(wallet), pk(mint))
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("find associated token address: %w", err)
	}
	return types.Pubkey(ata), nil
}

// BuildTokenTransfer 构造 SPL Token 转账：
// [create-idempotent 接收方 ATA, transfer-checked]，接收方 ATA 已存在时第一条指令为 no-op。
func BuildTokenTransfer(owner, mint types.Pubkey, to string, amount decimal.Decimal, decimals uint8) ([]core.Instruction, error) {
	baseUnits, err := ToBaseUnits(amount, int32(decimals))
	if err != nil {
		return nil, err
	}
	recipient, err := parseAddress(to)
	if err != nil {
		return nil, err
	}
	source, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	dest, err := AssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, err
	}

	createATA := associated_token_account.CreateIdempotent(associated_token_account.CreateIdempotentParam{
		Funder:                 pk(owner),
		Owner:                  pk(recipient),
		Mint:                   pk(mint),
		AssociatedTokenAccount: pk(dest),
	})
	transfer := token.TransferChecked(token.TransferCheckedParam{
		From:     pk(source),
		To:       pk(dest),
		Mint:     pk(mint),
		Auth:     pk(owner),
		Signers:  []common.PublicKey{},
		Amount:   baseUnits,
		Decimals: decimals,
	})
	return []core.Instruction{fromSDK(createATA), fromSDK(transfer)}, nil
}
