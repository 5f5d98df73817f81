// Package ledgertest 提供 ledger.RPC 的测试替身
package ledgertest

import (
	"context"
	"sync"
	"time"

	"wallet-core-sol/internal/ledger"
	"wallet-core-sol/internal/types"

	"github.com/jonboulle/clockwork"
)

// MockRPC 每个方法都可以通过 func 字段覆盖；同时记录每次调用的方法名和时间
type MockRPC struct {
	Clock clockwork.Clock

	GetBalanceFunc              func(context.Context, types.Pubkey) (uint64, error)
	GetTokenAccountBalanceFunc  func(context.Context, types.Pubkey) (*ledger.TokenAmount, error)
	GetAccountInfoFunc          func(context.Context, types.Pubkey) (*ledger.AccountInfo, error)
	GetTokenAccountsByOwnerFunc func(context.Context, types.Pubkey, types.Pubkey) ([]ledger.TokenAccount, error)
	GetSignatureStatusFunc      func(context.Context, types.Signature) (*ledger.SignatureStatus, error)
	GetEpochFunc                func(context.Context) (uint64, error)

	mu    sync.Mutex
	calls []Call
}

type Call struct {
	Method string
	At     time.Time
}

func (m *MockRPC) record(method string) {
	now := time.Now()
	if m.Clock != nil {
		now = m.Clock.Now()
	}
	m.mu.Lock()
	m.calls = append(m.calls, Call{Method: method, At: now})
	m.mu.Unlock()
}

// Calls 返回调用记录副本
func (m *MockRPC) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 指定方法的调用次数；method 为空时返回总次数
func (m *MockRPC) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if method == "" {
		return len(m.calls)
	}
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockRPC) GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error) {
	m.record("GetBalance")
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, addr)
	}
	return 1_000_000_000, nil
}

func (m *MockRPC) GetTokenAccountBalance(ctx context.Context, tokenAccount types.Pubkey) (*ledger.TokenAmount, error) {
	m.record("GetTokenAccountBalance")
	if m.GetTokenAccountBalanceFunc != nil {
		return m.GetTokenAccountBalanceFunc(ctx, tokenAccount)
	}
	return nil, nil
}

func (m *MockRPC) GetAccountInfo(ctx context.Context, addr types.Pubkey) (*ledger.AccountInfo, error) {
	m.record("GetAccountInfo")
	if m.GetAccountInfoFunc != nil {
		return m.GetAccountInfoFunc(ctx, addr)
	}
	return nil, nil
}

func (m *MockRPC) GetTokenAccountsByOwner(ctx context.Context, owner, program types.Pubkey) ([]ledger.TokenAccount, error) {
	m.record("GetTokenAccountsByOwner")
	if m.GetTokenAccountsByOwnerFunc != nil {
		return m.GetTokenAccountsByOwnerFunc(ctx, owner, program)
	}
	return nil, nil
}

func (m *MockRPC) GetSignatureStatus(ctx context.Context, sig types.Signature) (*ledger.SignatureStatus, error) {
	m.record("GetSignatureStatus")
	if m.GetSignatureStatusFunc != nil {
		return m.GetSignatureStatusFunc(ctx, sig)
	}
	return nil, nil
}

func (m *MockRPC) GetEpoch(ctx context.Context) (uint64, error) {
	m.record("GetEpoch")
	if m.GetEpochFunc != nil {
		return m.GetEpochFunc(ctx)
	}
	return 500, nil
}

var _ ledger.RPC = (*MockRPC)(nil)
