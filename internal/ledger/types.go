package ledger

import (
	"math/big"

	"wallet-core-sol/internal/types"

	"github.com/shopspring/decimal"
)

// TokenAmount token 账户余额（最小单位 + 精度）
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
}

// UIAmount 按精度换算后的金额
func (t TokenAmount) UIAmount() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(t.Amount), -int32(t.Decimals))
}

// AccountInfo 链上账户信息
type AccountInfo struct {
	Lamports   uint64
	Owner      types.Pubkey
	Executable bool
	Data       []byte
}

// TokenAccount owner 名下的一个 token 账户
type TokenAccount struct {
	Address types.Pubkey
	Mint    types.Pubkey
	Owner   types.Pubkey
	Amount  uint64
	Program types.Pubkey // TokenProgram / TokenProgram2022
}

// ConfirmationStatus 交易确认级别
type ConfirmationStatus string

const (
	StatusProcessed ConfirmationStatus = "processed"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusFinalized ConfirmationStatus = "finalized"
)

// SignatureStatus getSignatureStatuses 的单条结果
type SignatureStatus struct {
	Slot   uint64
	Status ConfirmationStatus
	Err    string // 非空表示链上执行失败
}

func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != ""
}

// Confirmed confirmed 或 finalized 且执行成功
func (s *SignatureStatus) Confirmed() bool {
	return s != nil && s.Err == "" && (s.Status == StatusConfirmed || s.Status == StatusFinalized)
}
