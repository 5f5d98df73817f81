package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/journal"
	"wallet-core-sol/internal/ledger"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/logic/executor"
	"wallet-core-sol/internal/pkg/logger"
	"wallet-core-sol/internal/types"

	"github.com/jonboulle/clockwork"
)

const defaultReconcileInterval = 30 * time.Second

// StatusReader 对账只需要查询签名状态
type StatusReader interface {
	GetSignatureStatus(ctx context.Context, sig types.Signature) (*ledger.SignatureStatus, error)
}

type ReconcilerConfig struct {
	Interval    time.Duration
	NetworkMode consts.NetworkMode
	Clock       clockwork.Clock
}

// Reconciler 周期性地重新查询 submitted / timeout 状态的交易，把链上结果写回 journal。
// 只查询，不会重新提交任何交易。
type Reconciler struct {
	reader   StatusReader
	journal  journal.Journal
	sink     executor.EventSink
	interval time.Duration
	network  consts.NetworkMode
	clock    clockwork.Clock
	stopChan chan struct{}
	ctx      context.Context
	cancel   func(err error)
}

func NewReconciler(reader StatusReader, j journal.Journal, sink executor.EventSink, cfg ReconcilerConfig) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultReconcileInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if sink == nil {
		sink = executor.NopEventSink{}
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Reconciler{
		reader:   reader,
		journal:  j,
		sink:     sink,
		interval: cfg.Interval,
		network:  cfg.NetworkMode,
		clock:    cfg.Clock,
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (r *Reconciler) Start() {
	logger.Infof("[Reconciler] started, interval=%v", r.interval)
	r.scheduleNext()
	<-r.stopChan
}

func (r *Reconciler) scheduleNext() {
	r.clock.AfterFunc(r.interval, func() {
		if _, err := r.safeRunOnce(); err != nil {
			logger.Warnf("[Reconciler] 周期性对账失败: %v", err)
		}
		// 如果没有被 Stop，就继续调度
		select {
		case <-r.ctx.Done():
			return
		default:
			r.scheduleNext()
		}
	})
}

func (r *Reconciler) Stop() {
	r.cancel(errors.New("Reconciler stop"))
	select {
	case <-r.stopChan:
		// 已关闭，无需重复关闭
	default:
		close(r.stopChan)
	}
}

func (r *Reconciler) safeRunOnce() (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("[Reconciler] panic: %v\n%s", rec, debug.Stack())
			err = fmt.Errorf("reconcile panic: %v", rec)
		}
	}()
	return r.RunOnce(r.ctx)
}

// RunOnce 执行一轮对账，返回状态发生变化（进入终态）的交易数
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.journal.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending signatures: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	resolved := 0
	var firstErr error
	for _, sig := range pending {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		status, err := r.reader.GetSignatureStatus(ctx, sig)
		if err != nil {
			logger.Warnf("[Reconciler] query %s failed: %v", sig, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		var next core.ExecutionStatus
		var errMsg string
		switch {
		case status.Failed():
			next, errMsg = core.ExecutionFailed, status.Err
		case status.Confirmed():
			next = core.ExecutionConfirmed
		default:
			continue
		}

		if err := r.journal.Record(ctx, sig, next); err != nil {
			logger.Errorf("[Reconciler] journal %s -> %s failed: %v", sig, next, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		resolved++
		logger.Infof("[Reconciler] %s -> %s (slot %d)", sig, next, status.Slot)

		ev := core.ExecutionEvent{
			Signature: sig,
			Status:    next,
			Network:   r.network,
			Error:     errMsg,
			At:        r.clock.Now(),
		}
		if err := r.sink.Publish(ctx, ev); err != nil {
			logger.Errorf("[Reconciler] publish event %s failed: %v", sig, err)
		}
	}
	logger.Infof("[Reconciler] pending=%d, resolved=%d", len(pending), resolved)
	return resolved, firstErr
}
