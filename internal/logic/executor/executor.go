package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/journal"
	"wallet-core-sol/internal/ledger"
	"wallet-core-sol/internal/logic/builder"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/pkg/logger"
	"wallet-core-sol/internal/tools"
	"wallet-core-sol/internal/types"

	"github.com/jonboulle/clockwork"
)

// SignerOptions 传给 Signer 的提交参数
type SignerOptions struct {
	FeeAsset         core.FeeAsset
	FeeToken         *types.Pubkey // FeeAssetDelegatedToken 时的结算 token
	ComputeUnitLimit *uint32
	NetworkMode      consts.NetworkMode
}

// Signer 外部签名与提交能力：负责 recent blockhash、签名和广播，返回交易签名
type Signer interface {
	SignAndSubmit(ctx context.Context, instrs []core.Instruction, opts SignerOptions) (types.Signature, error)
}

// LedgerReader 执行器依赖的链上读能力，通常是 *ledger.Facade
type LedgerReader interface {
	GetSignatureStatus(ctx context.Context, sig types.Signature) (*ledger.SignatureStatus, error)
	GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error)
	GetTokenBalance(ctx context.Context, tokenAccount types.Pubkey) (*ledger.TokenAmount, error)
}

// EventSink 执行结果通知
type EventSink interface {
	Publish(ctx context.Context, ev core.ExecutionEvent) error
}

// NopEventSink 未配置消息队列时使用
type NopEventSink struct{}

func (NopEventSink) Publish(context.Context, core.ExecutionEvent) error { return nil }

type Config struct {
	NetworkMode     consts.NetworkMode
	ExplorerBaseURL string
	PollInterval    time.Duration
	ConfirmTimeout  time.Duration

	// FeeToken 代付模式下用户结算手续费的 token；为零值时不支持代付
	FeeToken types.Pubkey
	// FeeReserveLamports 原生余额不低于该值时使用原生 SOL 付手续费
	FeeReserveLamports uint64
	// SponsorFeeTokenAmount 代付服务收取的 token 数量（最小单位）
	SponsorFeeTokenAmount uint64

	Clock clockwork.Clock
}

type ExecuteOptions struct {
	WaitForConfirmation bool
}

// Executor 将 TransactionPlan 交给 Signer 提交，并可选地轮询确认
type Executor struct {
	cfg     Config
	ledger  LedgerReader
	journal journal.Journal
	sink    EventSink
	clock   clockwork.Clock
}

func NewExecutor(reader LedgerReader, j journal.Journal, sink EventSink, cfg Config) *Executor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = consts.DefaultConfirmPollInterval
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = consts.DefaultConfirmTimeout
	}
	if !cfg.NetworkMode.Valid() {
		cfg.NetworkMode = consts.NetworkDevnet
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if j == nil {
		j = journal.NewMemoryJournal()
	}
	if sink == nil {
		sink = NopEventSink{}
	}
	return &Executor{
		cfg:     cfg,
		ledger:  reader,
		journal: j,
		sink:    sink,
		clock:   cfg.Clock,
	}
}

func (e *Executor) NetworkMode() consts.NetworkMode {
	return e.cfg.NetworkMode
}

// ExplorerURL 当前网络下的交易浏览器地址
func (e *Executor) ExplorerURL(sig types.Signature) string {
	return tools.ExplorerURL(e.cfg.ExplorerBaseURL, sig, e.cfg.NetworkMode)
}

// Execute 提交 plan。
// 不等待确认时，Signer 返回签名即视为成功；
// 等待确认时，每隔 PollInterval 查询一次状态，直到 confirmed / failed 或超时。
// 超时与链上失败返回 *core.PartialExecutionError，调用方需通过签名重新查询，不能直接重试。
func (e *Executor) Execute(ctx context.Context, plan *core.TransactionPlan, signer Signer, opts ExecuteOptions) (types.Signature, error) {
	if plan == nil || plan.Len() == 0 {
		return types.Signature{}, core.ErrNoInstructions
	}
	if err := plan.Consume(); err != nil {
		return types.Signature{}, err
	}

	signerOpts := SignerOptions{
		FeeAsset:    plan.FeeAsset(),
		NetworkMode: e.cfg.NetworkMode,
	}
	if limit, ok := plan.ComputeUnitLimit(); ok {
		signerOpts.ComputeUnitLimit = &limit
	}
	if plan.FeeAsset() == core.FeeAssetDelegatedToken && !e.cfg.FeeToken.IsZero() {
		feeToken := e.cfg.FeeToken
		signerOpts.FeeToken = &feeToken
	}

	sig, err := signer.SignAndSubmit(ctx, plan.Instructions(), signerOpts)
	if err != nil {
		return types.Signature{}, &core.SignerError{Err: err}
	}
	logger.Infof("[Executor] submitted %s, instructions=%d, fee=%s, network=%s", sig, plan.Len(), plan.FeeAsset(), e.cfg.NetworkMode)
	e.record(ctx, plan, sig, core.ExecutionSubmitted, "")

	if !opts.WaitForConfirmation {
		return sig, nil
	}
	return sig, e.waitForConfirmation(ctx, plan, sig)
}

func (e *Executor) waitForConfirmation(ctx context.Context, plan *core.TransactionPlan, sig types.Signature) error {
	deadline := e.clock.Now().Add(e.cfg.ConfirmTimeout)
	for {
		status, err := e.ledger.GetSignatureStatus(ctx, sig)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return &core.PartialExecutionError{Signature: sig, Err: ctx.Err()}
			}
			// 查询失败不代表交易失败，继续轮询直到超时
			logger.Warnf("[Executor] query status of %s failed: %v", sig, err)
		case status.Failed():
			e.record(ctx, plan, sig, core.ExecutionFailed, status.Err)
			return &core.PartialExecutionError{
				Signature: sig,
				Err:       fmt.Errorf("%w: %s", core.ErrTransactionFailed, status.Err),
			}
		case status.Confirmed():
			logger.Infof("[Executor] %s confirmed at slot %d", sig, status.Slot)
			e.record(ctx, plan, sig, core.ExecutionConfirmed, "")
			return nil
		}

		if !e.clock.Now().Before(deadline) {
			logger.Warnf("[Executor] %s not confirmed within %v", sig, e.cfg.ConfirmTimeout)
			e.record(ctx, plan, sig, core.ExecutionTimeout, core.ErrConfirmationTimeout.Error())
			return &core.PartialExecutionError{Signature: sig, Err: core.ErrConfirmationTimeout}
		}

		select {
		case <-ctx.Done():
			return &core.PartialExecutionError{Signature: sig, Err: ctx.Err()}
		case <-e.clock.After(e.cfg.PollInterval):
		}
	}
}

// record 写 journal 并发布事件；失败只记录日志，不影响执行结果
func (e *Executor) record(ctx context.Context, plan *core.TransactionPlan, sig types.Signature, status core.ExecutionStatus, errMsg string) {
	ctx = context.WithoutCancel(ctx)
	if err := e.journal.Record(ctx, sig, status); err != nil {
		logger.Errorf("[Executor] journal %s -> %s failed: %v", sig, status, err)
	}
	ev := core.ExecutionEvent{
		Signature:    sig,
		Status:       status,
		Network:      e.cfg.NetworkMode,
		FeeAsset:     plan.FeeAsset(),
		Instructions: plan.Len(),
		Error:        errMsg,
		At:           e.clock.Now(),
	}
	if err := e.sink.Publish(ctx, ev); err != nil {
		logger.Errorf("[Executor] publish event %s -> %s failed: %v", sig, status, err)
	}
}

// SelectFeeAsset 提交前检查手续费来源：
// 原生余额足够时用 SOL，否则检查 FeeToken 余额能否覆盖代付费用，都不满足返回 ErrInsufficientFunds。
func (e *Executor) SelectFeeAsset(ctx context.Context, owner types.Pubkey) (core.FeeAsset, error) {
	lamports, err := e.ledger.GetBalance(ctx, owner)
	if err != nil {
		return core.FeeAssetNative, err
	}
	if lamports >= e.cfg.FeeReserveLamports {
		return core.FeeAssetNative, nil
	}
	if e.cfg.FeeToken.IsZero() {
		return core.FeeAssetNative, fmt.Errorf("%w: %d lamports below fee reserve %d", core.ErrInsufficientFunds, lamports, e.cfg.FeeReserveLamports)
	}

	ata, err := builder.AssociatedTokenAddress(owner, e.cfg.FeeToken)
	if err != nil {
		return core.FeeAssetNative, err
	}
	balance, err := e.ledger.GetTokenBalance(ctx, ata)
	if err != nil {
		return core.FeeAssetNative, err
	}
	if balance != nil && balance.Amount >= e.cfg.SponsorFeeTokenAmount {
		return core.FeeAssetDelegatedToken, nil
	}
	var have uint64
	if balance != nil {
		have = balance.Amount
	}
	if decimals, ok := tools.KnownTokenDecimals[e.cfg.FeeToken]; ok {
		return core.FeeAssetNative, fmt.Errorf("%w: %d lamports, %s of fee token %s (need %s)",
			core.ErrInsufficientFunds, lamports,
			builder.FormatBaseUnits(have, int32(decimals)), e.cfg.FeeToken,
			builder.FormatBaseUnits(e.cfg.SponsorFeeTokenAmount, int32(decimals)))
	}
	return core.FeeAssetNative, fmt.Errorf("%w: %d lamports, %d of fee token %s (need %d)",
		core.ErrInsufficientFunds, lamports, have, e.cfg.FeeToken, e.cfg.SponsorFeeTokenAmount)
}

// BuildFeeTokenPayment 代付模式下用户向 sponsor 支付手续费 token 的指令。
// 精度取自已知 token 表，不需要额外查询 mint。
func (e *Executor) BuildFeeTokenPayment(owner types.Pubkey, sponsor string) ([]core.Instruction, error) {
	if e.cfg.FeeToken.IsZero() {
		return nil, fmt.Errorf("%w: no fee token configured", core.ErrInvalidAddress)
	}
	decimals, ok := tools.KnownTokenDecimals[e.cfg.FeeToken]
	if !ok {
		return nil, fmt.Errorf("%w: unknown decimals for fee token %s", core.ErrInvalidAddress, e.cfg.FeeToken)
	}
	amount := builder.FormatBaseUnits(e.cfg.SponsorFeeTokenAmount, int32(decimals))
	return builder.BuildTokenTransfer(owner, e.cfg.FeeToken, sponsor, amount, decimals)
}

// IsPartial 调用方用来判断是否需要走对账流程
func IsPartial(err error) bool {
	var partial *core.PartialExecutionError
	return errors.As(err, &partial)
}
