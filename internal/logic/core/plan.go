package core

import (
	"fmt"
	"sync/atomic"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/types"
)

// FeeAsset 表示网络手续费由哪种资产支付
type FeeAsset int

const (
	FeeAssetNative         FeeAsset = iota // 原生 SOL 支付
	FeeAssetDelegatedToken                 // 第三方代付，用户以指定 SPL Token 结算
)

func (f FeeAsset) String() string {
	switch f {
	case FeeAssetNative:
		return "native"
	case FeeAssetDelegatedToken:
		return "delegated_token"
	default:
		return fmt.Sprintf("fee_asset(%d)", int(f))
	}
}

// TransactionPlan 一次用户操作对应的待提交指令集合。
// 构造后不可变，且只能被 TransactionExecutor 消费一次。
type TransactionPlan struct {
	instructions     []Instruction
	feeAsset         FeeAsset
	computeUnitLimit *uint32
	consumed         atomic.Bool
}

// NewTransactionPlan 校验并构造 TransactionPlan，instrs 会被深拷贝。
// 空指令列表在这里允许构造，由 executor 以 ErrNoInstructions 拒绝。
func NewTransactionPlan(instrs []Instruction, feeAsset FeeAsset, computeUnitLimit *uint32) (*TransactionPlan, error) {
	if feeAsset != FeeAssetNative && feeAsset != FeeAssetDelegatedToken {
		return nil, fmt.Errorf("unknown fee asset %d", int(feeAsset))
	}
	var limit *uint32
	if computeUnitLimit != nil {
		if *computeUnitLimit == 0 || *computeUnitLimit > consts.MaxComputeUnitLimit {
			return nil, fmt.Errorf("%w: %d", ErrInvalidComputeUnitLimit, *computeUnitLimit)
		}
		v := *computeUnitLimit
		limit = &v
	}
	return &TransactionPlan{
		instructions:     cloneInstructions(instrs),
		feeAsset:         feeAsset,
		computeUnitLimit: limit,
	}, nil
}

// Instructions 返回指令副本，顺序与构造时一致
func (p *TransactionPlan) Instructions() []Instruction {
	return cloneInstructions(p.instructions)
}

func (p *TransactionPlan) Len() int {
	return len(p.instructions)
}

func (p *TransactionPlan) FeeAsset() FeeAsset {
	return p.feeAsset
}

// ComputeUnitLimit 未设置时返回 (0, false)
func (p *TransactionPlan) ComputeUnitLimit() (uint32, bool) {
	if p.computeUnitLimit == nil {
		return 0, false
	}
	return *p.computeUnitLimit, true
}

// Consume 标记 plan 已被消费，第二次调用返回 ErrPlanConsumed
func (p *TransactionPlan) Consume() error {
	if !p.consumed.CompareAndSwap(false, true) {
		return ErrPlanConsumed
	}
	return nil
}

// Signers 返回指令中所有需要签名的账户（去重，按首次出现顺序）
func (p *TransactionPlan) Signers() []types.Pubkey {
	seen := make(map[types.Pubkey]struct{})
	var out []types.Pubkey
	for _, ix := range p.instructions {
		for _, acc := range ix.Accounts {
			if !acc.IsSigner {
				continue
			}
			if _, ok := seen[acc.Address]; ok {
				continue
			}
			seen[acc.Address] = struct{}{}
			out = append(out, acc.Address)
		}
	}
	return out
}
