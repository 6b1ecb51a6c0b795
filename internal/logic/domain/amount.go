package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ToDisplayAmount 最小单位换算为展示数量
func ToDisplayAmount(raw uint64, decimals uint8) float64 {
	f, _ := decimal.NewFromUint64(raw).Shift(-int32(decimals)).Float64()
	return f
}

// ParseBaseUnits 把用户输入的数量换算为最小单位。
// 超出精度的小数位、非正数、溢出 u64 都视为非法。
func ParseBaseUnits(amount string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return toBaseUnits(d, decimals)
}

func toBaseUnits(d decimal.Decimal, decimals uint8) (uint64, error) {
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", d)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d, decimals)
	}
	if scaled.GreaterThan(decimal.NewFromUint64(math.MaxUint64)) {
		return 0, fmt.Errorf("amount %s overflows u64", d)
	}
	return scaled.BigInt().Uint64(), nil
}
