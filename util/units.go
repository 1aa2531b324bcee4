package util

import (
	"fmt"
	"math/big"
	"strconv"
)

// ToBaseUnits converts a human readable token amount into the token's smallest unit.
func ToBaseUnits(value float64, decimals uint8) (*big.Int, error) {
	if value < 0 {
		return nil, fmt.Errorf("negative amount: %v", value)
	}
	humanFloat, ok := new(big.Float).SetPrec(256).SetString(strconv.FormatFloat(value, 'f', -1, 64))
	if !ok {
		return nil, fmt.Errorf("conversion to float failed")
	}
	unit := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	baseFloat := new(big.Float).Mul(humanFloat, unit)
	baseInt, acc := new(big.Int).SetString(baseFloat.Text('f', 0), 10)
	if !acc {
		return nil, fmt.Errorf("conversion to base units failed")
	}
	return baseInt, nil
}

// FromBaseUnits converts an amount in the token's smallest unit (decimal string) to a
// human readable value.
func FromBaseUnits(amount string, decimals uint8) (float64, error) {
	if amount == "" {
		return 0, nil
	}
	base, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return 0, fmt.Errorf("invalid amount: %s", amount)
	}
	unit := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value, _ := new(big.Float).Quo(new(big.Float).SetInt(base), unit).Float64()
	return value, nil
}
