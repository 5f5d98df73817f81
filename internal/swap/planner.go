package swap

import (
	"context"
	"fmt"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/logic/decomposer"
	"wallet-core-sol/internal/pkg/logger"
	"wallet-core-sol/internal/types"
)

// SwapPlan 一次 swap 对应的报价与待提交的交易（按聚合器返回顺序）
type SwapPlan struct {
	Quote *Quote
	Plans []*core.TransactionPlan
}

// Planner 询价 -> 获取交易 -> 拆解为指令 -> 组装 TransactionPlan
type Planner struct {
	client *Client
	tables decomposer.LookupTableSource
}

func NewPlanner(client *Client, tables decomposer.LookupTableSource) *Planner {
	return &Planner{client: client, tables: tables}
}

// BuildSwapPlan 聚合器交易中的 compute budget 指令会被剥离，由 computeUnitLimit 与 signer 统一设置
func (p *Planner) BuildSwapPlan(
	ctx context.Context,
	req QuoteRequest,
	user types.Pubkey,
	feeAsset core.FeeAsset,
	computeUnitLimit *uint32,
) (*SwapPlan, error) {
	quote, err := p.client.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	blobs, err := p.client.Transactions(ctx, quote, user)
	if err != nil {
		return nil, err
	}

	plans := make([]*core.TransactionPlan, 0, len(blobs))
	for i, blob := range blobs {
		instrs, err := decomposer.DecomposeBase64(ctx, blob, p.tables)
		if err != nil {
			return nil, fmt.Errorf("decompose swap transaction %d: %w", i, err)
		}
		instrs = decomposer.StripComputeBudget(instrs)
		plan, err := core.NewTransactionPlan(instrs, feeAsset, computeUnitLimit)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	logger.Infof("[SwapPlanner] %s -> %s, in=%d out=%d, transactions=%d",
		req.InputMint, req.OutputMint, quote.InputAmount, quote.OutputAmount, len(plans))
	return &SwapPlan{Quote: quote, Plans: plans}, nil
}
