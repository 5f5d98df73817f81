package builder

import (
	"fmt"
	"math/big"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/logic/core"

	"github.com/shopspring/decimal"
)

var maxU64 = decimal.RequireFromString("18446744073709551615")

// ToBaseUnits 将 UI 金额按 decimals 精确换算为最小单位。
// 金额必须 > 0、不得有超出 decimals 的小数位、且不能溢出 u64。
func ToBaseUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", core.ErrInvalidAmount, amount.String())
	}
	shifted := amount.Shift(decimals)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", core.ErrInvalidAmount, amount.String(), decimals)
	}
	if shifted.GreaterThan(maxU64) {
		return 0, fmt.Errorf("%w: %s overflows u64 base units", core.ErrInvalidAmount, amount.String())
	}
	return shifted.BigInt().Uint64(), nil
}

// LamportsFromSOL 9 位精度的原生币换算
func LamportsFromSOL(amount decimal.Decimal) (uint64, error) {
	return ToBaseUnits(amount, consts.NativeDecimals)
}

// FormatBaseUnits 最小单位转 UI 金额
func FormatBaseUnits(value uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value), -decimals)
}
