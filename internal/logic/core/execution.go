package core

import (
	"time"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/types"
)

// ExecutionStatus 已提交交易在本地记录中的状态
type ExecutionStatus string

const (
	ExecutionUnknown   ExecutionStatus = ""
	ExecutionSubmitted ExecutionStatus = "submitted" // signer 返回签名，尚未确认
	ExecutionConfirmed ExecutionStatus = "confirmed" // 链上 confirmed / finalized
	ExecutionFailed    ExecutionStatus = "failed"    // 链上执行失败
	ExecutionTimeout   ExecutionStatus = "timeout"   // 确认超时，链上结果未知
)

// Terminal confirmed / failed 为终态，不会再变化
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionConfirmed || s == ExecutionFailed
}

// Pending submitted / timeout 需要后续对账
func (s ExecutionStatus) Pending() bool {
	return s == ExecutionSubmitted || s == ExecutionTimeout
}

// ExecutionEvent 一次执行结果的通知
type ExecutionEvent struct {
	Signature    types.Signature
	Status       ExecutionStatus
	Network      consts.NetworkMode
	FeeAsset     FeeAsset
	Instructions int
	Error        string
	At           time.Time
}
