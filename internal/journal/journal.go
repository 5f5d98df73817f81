package journal

import (
	"context"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"
)

// Journal 记录已提交交易的状态，供对账使用。
// 只记录签名和状态，从不保存指令，因此不会被用于重新提交。
type Journal interface {
	Record(ctx context.Context, sig types.Signature, status core.ExecutionStatus) error
	// Status 未记录时返回 ExecutionUnknown
	Status(ctx context.Context, sig types.Signature) (core.ExecutionStatus, error)
	// Pending 返回 submitted / timeout 状态的签名
	Pending(ctx context.Context) ([]types.Signature, error)
}
