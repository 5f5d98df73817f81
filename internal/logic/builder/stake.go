package builder

import (
	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/logic/derivation"
	"wallet-core-sol/internal/types"

	"github.com/blocto/solana-go-sdk/program/stake"
	"github.com/blocto/solana-go-sdk/program/system"
)

// StakeSetup 创建并委托 stake 账户所需的指令。
// Instructions 固定为 [create-account-with-seed, delegate-stake]，必须放在同一个 TransactionPlan 中提交。
type StakeSetup struct {
	Instructions []core.Instruction
	StakeAddress types.Pubkey
}

// BuildStakeSetup 派生 stake 账户地址并构造创建 + 委托指令。
// owner 是唯一签名者：派生账户由 owner 以 base 身份授权创建，不需要第二把私钥。
// 返回的指令中不包含 stake 程序的 Initialize：新建账户未初始化时 DelegateStake 会被链上拒绝，
// Signer 必须在两条指令之间插入 Initialize（staker/withdrawer 均为 owner）后再提交。
func BuildStakeSetup(owner types.Pubkey, seed string, amountLamports uint64, validator string) (StakeSetup, error) {
	if amountLamports == 0 {
		return StakeSetup{}, core.ErrInvalidAmount
	}
	vote, err := parseAddress(validator)
	if err != nil {
		return StakeSetup{}, err
	}
	stakeAddr, err := derivation.StakeAddress(owner, seed)
	if err != nil {
		return StakeSetup{}, err
	}

	create := system.CreateAccountWithSeed(system.CreateAccountWithSeedParam{
		From:     pk(owner),
		New:      pk(stakeAddr),
		Base:     pk(owner),
		Owner:    pk(consts.StakeProgram),
		Seed:     seed,
		Lamports: amountLamports,
		Space:    consts.StakeAccountSpace,
	})
	delegate := stake.DelegateStake(stake.DelegateStakeParam{
		Stake: pk(stakeAddr),
		Auth:  pk(owner),
		Vote:  pk(vote),
	})

	return StakeSetup{
		Instructions: []core.Instruction{fromSDK(create), fromSDK(delegate)},
		StakeAddress: stakeAddr,
	}, nil
}

// BuildStakeDeactivate 停止委托，owner 为 staker 权限
func BuildStakeDeactivate(owner, stakeAccount types.Pubkey) core.Instruction {
	return fromSDK(stake.Deactivate(stake.DeactivateParam{
		Stake: pk(stakeAccount),
		Auth:  pk(owner),
	}))
}

// BuildStakeWithdraw 从已停用的 stake 账户取回 lamports 到 owner
func BuildStakeWithdraw(owner, stakeAccount types.Pubkey, lamports uint64) (core.Instruction, error) {
	if lamports == 0 {
		return core.Instruction{}, core.ErrInvalidAmount
	}
	return fromSDK(stake.Withdraw(stake.WithdrawParam{
		Stake:    pk(stakeAccount),
		Auth:     pk(owner),
		To:       pk(owner),
		Lamports: lamports,
	})), nil
}
