package core

import (
	"fmt"

	"wallet-core-sol/internal/types"
)

// StakeState stake 账户相对当前 epoch 的状态
type StakeState int

const (
	StakeStateInactive StakeState = iota
	StakeStateActivating
	StakeStateActive
	StakeStateDeactivating
)

func (s StakeState) String() string {
	switch s {
	case StakeStateInactive:
		return "inactive"
	case StakeStateActivating:
		return "activating"
	case StakeStateActive:
		return "active"
	case StakeStateDeactivating:
		return "deactivating"
	default:
		return fmt.Sprintf("stake_state(%d)", int(s))
	}
}

// StakeAccountSummary stake 账户的只读投影，每次查询重新构造，不做原地修改
type StakeAccountSummary struct {
	Address            types.Pubkey
	Lamports           uint64
	State              StakeState
	DelegatedValidator *types.Pubkey // 未委托时为 nil
}
