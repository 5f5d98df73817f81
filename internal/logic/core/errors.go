package core

import (
	"errors"
	"fmt"

	"wallet-core-sol/internal/types"
)

// 校验错误：在任何网络调用之前本地检测，不重试
var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidAddress          = errors.New("invalid address")
	ErrInvalidSeed             = errors.New("invalid seed")
	ErrMemoTooLong             = errors.New("memo too long")
	ErrEmptyMemo               = errors.New("empty memo")
	ErrInvalidComputeUnitLimit = errors.New("invalid compute unit limit")
	ErrNoInstructions          = errors.New("no instructions")
	ErrPlanConsumed            = errors.New("transaction plan already consumed")
	ErrInsufficientFunds       = errors.New("insufficient funds")
)

// 解码错误：调用方需要重新获取 quote / 交易，而不是重试解码
var ErrMalformedTransaction = errors.New("malformed transaction")

// 部分执行：调用返回错误，但链上可能已经部分或全部成功
var (
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrTransactionFailed   = errors.New("transaction failed on ledger")
)

// ErrAccountNotFound 账户不存在（ledger 层使用，多数查询会转换为空结果而不是错误）
var ErrAccountNotFound = errors.New("account not found")

// Category 错误分类
type Category int

const (
	CategoryUnknown    Category = iota
	CategoryValidation          // 本地校验失败
	CategoryDecode              // 外部交易无法解码
	CategoryNetwork             // 网络 / 限流等瞬时错误，由调用方决定是否重试
	CategoryPartial             // 部分执行，必须重新查询链上状态
	CategorySigner              // Signer 透传错误（用户取消、认证失败）
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryDecode:
		return "decode"
	case CategoryNetwork:
		return "network"
	case CategoryPartial:
		return "partial"
	case CategorySigner:
		return "signer"
	default:
		return "unknown"
	}
}

// PartialExecutionError 交易已经提交，但最终结果未知或失败。
// 调用方不能盲目重复提交相同的指令 / seed，应通过 Signature 重新查询状态。
type PartialExecutionError struct {
	Signature types.Signature
	Err       error
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("%v (signature=%s)", e.Err, e.Signature)
}

func (e *PartialExecutionError) Unwrap() error {
	return e.Err
}

// SignerError 包装外部 Signer 返回的错误，Error() 原样输出
type SignerError struct {
	Err error
}

func (e *SignerError) Error() string {
	return e.Err.Error()
}

func (e *SignerError) Unwrap() error {
	return e.Err
}

// NetworkError 包装 ledger / 聚合器的网络错误
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Classify 将错误映射到错误分类
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var (
		signerErr  *SignerError
		partialErr *PartialExecutionError
		netErr     *NetworkError
	)
	switch {
	case errors.As(err, &signerErr):
		return CategorySigner
	case errors.As(err, &partialErr):
		return CategoryPartial
	case errors.Is(err, ErrMalformedTransaction):
		return CategoryDecode
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrInvalidSeed),
		errors.Is(err, ErrMemoTooLong),
		errors.Is(err, ErrEmptyMemo),
		errors.Is(err, ErrInvalidComputeUnitLimit),
		errors.Is(err, ErrNoInstructions),
		errors.Is(err, ErrPlanConsumed),
		errors.Is(err, ErrInsufficientFunds):
		return CategoryValidation
	case errors.As(err, &netErr):
		return CategoryNetwork
	default:
		return CategoryUnknown
	}
}

// IsRetryable 只有网络类错误允许调用方重试
func IsRetryable(err error) bool {
	return Classify(err) == CategoryNetwork
}
