// Package amm holds the constant-product (x*y=k) pool math.
package amm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	FeeDenominator = 10000
	DefaultFeeBps  = 30

	// divPrecision is the number of decimals kept on division.
	divPrecision = 18
)

var (
	ErrNonPositiveAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientLiquidity = errors.New("pool has no liquidity on one side")
)

var feeDen = decimal.NewFromInt(FeeDenominator)

// EffectiveFee maps a missing or zero fee to DefaultFeeBps.
func EffectiveFee(feeBps int) int {
	if feeBps <= 0 {
		return DefaultFeeBps
	}
	return feeBps
}

// ApplyFee returns amount * (10000 - feeBps) / 10000.
func ApplyFee(amount decimal.Decimal, feeBps int) decimal.Decimal {
	mult := decimal.NewFromInt(int64(FeeDenominator - feeBps))
	return amount.Mul(mult).DivRound(feeDen, divPrecision)
}

// SwapOutput computes the output of selling amountIn into a pool with the
// given reserves. The fee is taken from the input side:
//
//	out = amountInAfterFee * reserveOut / (reserveIn + amountInAfterFee)
//
// For amountIn > 0 and positive reserves the result is strictly less than
// reserveOut.
func SwapOutput(amountIn, reserveIn, reserveOut decimal.Decimal, feeBps int) (decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return decimal.Zero, ErrInsufficientLiquidity
	}
	fee := EffectiveFee(feeBps)
	if fee >= FeeDenominator {
		return decimal.Zero, fmt.Errorf("fee %d bps leaves nothing to swap", fee)
	}

	afterFee := ApplyFee(amountIn, fee)
	numerator := afterFee.Mul(reserveOut)
	denominator := reserveIn.Add(afterFee)
	out := numerator.DivRound(denominator, divPrecision)

	// Rounding can only push out up to reserveOut for absurdly large trades.
	if out.GreaterThanOrEqual(reserveOut) {
		out = reserveOut.Sub(decimal.New(1, -divPrecision))
	}
	return out, nil
}

// InitialLiquidity returns sqrt(amountA * amountB), the geometric-mean
// liquidity a new pool is seeded with.
func InitialLiquidity(amountA, amountB decimal.Decimal) decimal.Decimal {
	product := amountA.Mul(amountB)
	if !product.IsPositive() {
		return decimal.Zero
	}
	f, ok := new(big.Float).SetPrec(256).SetString(product.String())
	if !ok {
		return decimal.Zero
	}
	root := new(big.Float).SetPrec(256).Sqrt(f)
	out, err := decimal.NewFromString(root.Text('f', divPrecision))
	if err != nil {
		return decimal.Zero
	}
	return out
}

// PriceImpact returns, in percent, how far the execution price of a fee-less
// trade of amountIn deviates from the spot price reserveOut/reserveIn.
// Zero reserves or a zero amount yield 0.
func PriceImpact(amountIn, reserveIn, reserveOut decimal.Decimal) float64 {
	if !amountIn.IsPositive() || !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return 0
	}
	spot := reserveOut.DivRound(reserveIn, divPrecision)
	newIn := reserveIn.Add(amountIn)
	newOut := reserveIn.Mul(reserveOut).DivRound(newIn, divPrecision)
	exec := reserveOut.Sub(newOut).DivRound(amountIn, divPrecision)
	impact := exec.Sub(spot).Abs().DivRound(spot, divPrecision).Mul(decimal.NewFromInt(100))
	return impact.InexactFloat64()
}

// ApplySlippage returns the minimum acceptable output for a tolerance in bps.
func ApplySlippage(amountOut decimal.Decimal, slippageBps int) decimal.Decimal {
	if slippageBps >= FeeDenominator {
		return decimal.Zero
	}
	if slippageBps <= 0 {
		return amountOut
	}
	return ApplyFee(amountOut, slippageBps)
}
