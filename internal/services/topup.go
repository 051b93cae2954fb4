package services

import (
	"errors"
	"math/big"
)

// extendForTopUp computes how far the end time moves when amount is added to
// a schedule of total over [start, end]. The extension keeps the payout rate
// constant: amount * (end - start) / total, floored.
func extendForTopUp(total, start, end, amount int64) (int64, error) {
	if total <= 0 {
		return 0, errors.New("total must be positive")
	}
	n := new(big.Int).Mul(big.NewInt(amount), big.NewInt(end-start))
	n.Quo(n, big.NewInt(total))
	if !n.IsInt64() {
		return 0, errors.New("top-up extension overflows int64")
	}
	return n.Int64(), nil
}
