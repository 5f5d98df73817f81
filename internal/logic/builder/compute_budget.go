package builder

import (
	"fmt"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/logic/core"

	"github.com/blocto/solana-go-sdk/program/compute_budget"
)

// BuildComputeBudget 构造 compute budget 指令；limit 为 nil 且 microLamports 为 0 时返回空
func BuildComputeBudget(limit *uint32, microLamports uint64) ([]core.Instruction, error) {
	var out []core.Instruction
	if limit != nil {
		if *limit == 0 || *limit > consts.MaxComputeUnitLimit {
			return nil, fmt.Errorf("%w: %d", core.ErrInvalidComputeUnitLimit, *limit)
		}
		out = append(out, fromSDK(compute_budget.SetComputeUnitLimit(compute_budget.SetComputeUnitLimitParam{
			Units: *limit,
		})))
	}
	if microLamports > 0 {
		out = append(out, fromSDK(compute_budget.SetComputeUnitPrice(compute_budget.SetComputeUnitPriceParam{
			MicroLamports: microLamports,
		})))
	}
	return out, nil
}
