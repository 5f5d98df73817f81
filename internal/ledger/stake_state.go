package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/near/borsh-go"
)

// ErrNotStakeAccount 账户存在但不属于 Stake 程序或数据无法解析
var ErrNotStakeAccount = errors.New("not a stake account")

// StakeStateV2 的 tag（bincode u32 LE）
const (
	stakeTagUninitialized uint32 = 0
	stakeTagInitialized   uint32 = 1
	stakeTagStake         uint32 = 2
	stakeTagRewardsPool   uint32 = 3
)

const (
	stakeTagSize   = 4
	stakeMetaSize  = 120
	stakeStakeSize = 72
)

type stakeMeta struct {
	RentExemptReserve   uint64
	Staker              [32]byte
	Withdrawer          [32]byte
	LockupUnixTimestamp int64
	LockupEpoch         uint64
	Custodian           [32]byte
}

type stakeDelegation struct {
	Voter              [32]byte
	Stake              uint64
	ActivationEpoch    uint64
	DeactivationEpoch  uint64
	WarmupCooldownRate float64
	CreditsObserved    uint64
}

type stakeBody struct {
	Meta  stakeMeta
	Stake stakeDelegation
}

// decodedStake 解码结果，delegation 仅在 tag == Stake 时存在
type decodedStake struct {
	tag        uint32
	meta       stakeMeta
	delegation *stakeDelegation
}

func decodeStakeState(data []byte) (_ *decodedStake, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: decode panic: %v", ErrNotStakeAccount, r)
		}
	}()

	if len(data) < stakeTagSize {
		return nil, fmt.Errorf("%w: data too short (%d bytes)", ErrNotStakeAccount, len(data))
	}
	tag := binary.LittleEndian.Uint32(data[:stakeTagSize])
	out := &decodedStake{tag: tag}
	switch tag {
	case stakeTagUninitialized, stakeTagRewardsPool:
		return out, nil
	case stakeTagInitialized:
		if len(data) < stakeTagSize+stakeMetaSize {
			return nil, fmt.Errorf("%w: initialized state truncated", ErrNotStakeAccount)
		}
		if err := borsh.Deserialize(&out.meta, data[stakeTagSize:stakeTagSize+stakeMetaSize]); err != nil {
			return nil, fmt.Errorf("%w: meta: %v", ErrNotStakeAccount, err)
		}
		return out, nil
	case stakeTagStake:
		end := stakeTagSize + stakeMetaSize + stakeStakeSize
		if len(data) < end {
			return nil, fmt.Errorf("%w: stake state truncated", ErrNotStakeAccount)
		}
		var body stakeBody
		if err := borsh.Deserialize(&body, data[stakeTagSize:end]); err != nil {
			return nil, fmt.Errorf("%w: stake: %v", ErrNotStakeAccount, err)
		}
		out.meta = body.Meta
		out.delegation = &body.Stake
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown state tag %d", ErrNotStakeAccount, tag)
	}
}

// classifyStake 根据当前 epoch 判断委托状态
func classifyStake(d *stakeDelegation, epoch uint64) core.StakeState {
	if d == nil {
		return core.StakeStateInactive
	}
	if d.DeactivationEpoch == math.MaxUint64 {
		// 创世 stake 的 activation epoch 为 MaxUint64
		if d.ActivationEpoch != math.MaxUint64 && epoch <= d.ActivationEpoch {
			return core.StakeStateActivating
		}
		return core.StakeStateActive
	}
	// 同一 epoch 内激活后又取消
	if d.ActivationEpoch == d.DeactivationEpoch {
		return core.StakeStateInactive
	}
	if epoch <= d.DeactivationEpoch {
		return core.StakeStateDeactivating
	}
	return core.StakeStateInactive
}

// buildStakeSummary 每次查询都构造新的 summary
func buildStakeSummary(addr types.Pubkey, info *AccountInfo, epoch uint64) (*core.StakeAccountSummary, error) {
	decoded, err := decodeStakeState(info.Data)
	if err != nil {
		return nil, err
	}
	summary := &core.StakeAccountSummary{
		Address:  addr,
		Lamports: info.Lamports,
		State:    classifyStake(decoded.delegation, epoch),
	}
	if decoded.delegation != nil {
		v := types.Pubkey(decoded.delegation.Voter)
		summary.DelegatedValidator = &v
	}
	return summary, nil
}
