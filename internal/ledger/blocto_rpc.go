package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-core-sol/internal/types"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
)

// BloctoRPC 基于 blocto solana-go-sdk 的 RPC 实现
type BloctoRPC struct {
	client *client.Client
}

func NewBloctoRPC(endpoint string) (*BloctoRPC, error) {
	c := client.NewClient(endpoint)
	if c == nil {
		return nil, errors.New("rpc client init failed")
	}
	return &BloctoRPC{client: c}, nil
}

// isAccountNotFound getTokenAccountBalance 对不存在的账户返回 -32602 "could not find account"
func isAccountNotFound(err error) bool {
	var rpcErr *rpc.JsonRpcError
	if errors.As(err, &rpcErr) && strings.Contains(strings.ToLower(rpcErr.Message), "could not find account") {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "could not find account")
}

func (b *BloctoRPC) GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error) {
	return b.client.GetBalance(ctx, addr.String())
}

func (b *BloctoRPC) GetTokenAccountBalance(ctx context.Context, tokenAccount types.Pubkey) (*TokenAmount, error) {
	res, err := b.client.GetTokenAccountBalance(ctx, tokenAccount.String())
	if err != nil {
		if isAccountNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &TokenAmount{Amount: res.Amount, Decimals: res.Decimals}, nil
}

func (b *BloctoRPC) GetAccountInfo(ctx context.Context, addr types.Pubkey) (*AccountInfo, error) {
	info, err := b.client.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return nil, err
	}
	// 账户不存在时 SDK 返回零值
	if info.Owner == (common.PublicKey{}) && info.Lamports == 0 && len(info.Data) == 0 {
		return nil, nil
	}
	return &AccountInfo{
		Lamports:   info.Lamports,
		Owner:      types.Pubkey(info.Owner),
		Executable: info.Executable,
		Data:       info.Data,
	}, nil
}

func (b *BloctoRPC) GetTokenAccountsByOwner(ctx context.Context, owner, program types.Pubkey) ([]TokenAccount, error) {
	accounts, err := b.client.GetTokenAccountsByOwnerByProgram(ctx, owner.String(), program.String())
	if err != nil {
		return nil, err
	}
	out := make([]TokenAccount, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, TokenAccount{
			Address: types.Pubkey(acc.PublicKey),
			Mint:    types.Pubkey(acc.Mint),
			Owner:   types.Pubkey(acc.Owner),
			Amount:  acc.Amount,
			Program: program,
		})
	}
	return out, nil
}

func (b *BloctoRPC) GetSignatureStatus(ctx context.Context, sig types.Signature) (*SignatureStatus, error) {
	status, err := b.client.GetSignatureStatus(ctx, sig.String())
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, nil
	}
	out := &SignatureStatus{Slot: status.Slot}
	if status.ConfirmationStatus != nil {
		out.Status = ConfirmationStatus(*status.ConfirmationStatus)
	}
	if status.Err != nil {
		out.Err = fmt.Sprintf("%v", status.Err)
	}
	return out, nil
}

func (b *BloctoRPC) GetEpoch(ctx context.Context) (uint64, error) {
	info, err := b.client.GetEpochInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.Epoch, nil
}
