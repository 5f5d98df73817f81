package ledger

import (
	"context"

	"wallet-core-sol/internal/types"
)

// RPC 原始链上读接口。实现不做缓存和限流，这些由 Facade 负责。
// 账户不存在时返回 (nil, nil)，而不是错误。
type RPC interface {
	GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error)
	GetTokenAccountBalance(ctx context.Context, tokenAccount types.Pubkey) (*TokenAmount, error)
	GetAccountInfo(ctx context.Context, addr types.Pubkey) (*AccountInfo, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, program types.Pubkey) ([]TokenAccount, error)
	GetSignatureStatus(ctx context.Context, sig types.Signature) (*SignatureStatus, error)
	GetEpoch(ctx context.Context) (uint64, error)
}
