package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pool is a constant-product liquidity pool over an unordered token pair.
type Pool struct {
	ID             string          `json:"id"`
	TokenA         string          `json:"tokenA"`
	TokenB         string          `json:"tokenB"`
	ReserveA       decimal.Decimal `json:"reserveA"`
	ReserveB       decimal.Decimal `json:"reserveB"`
	Fee            int             `json:"fee"` // basis points
	TotalLiquidity decimal.Decimal `json:"totalLiquidity"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Pair returns the pool's tokens as "A/B" in stored order.
func (p *Pool) Pair() string {
	return p.TokenA + "/" + p.TokenB
}

// Matches reports whether the pool trades a and b in either order.
func (p *Pool) Matches(a, b string) bool {
	return (p.TokenA == a && p.TokenB == b) || (p.TokenA == b && p.TokenB == a)
}

// Reserves returns (reserveIn, reserveOut) for a trade selling tokenIn.
func (p *Pool) Reserves(tokenIn string) (decimal.Decimal, decimal.Decimal) {
	if p.TokenA == tokenIn {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// Oriented maps reserves expressed relative to tokenIn back onto the
// pool's stored (A, B) order.
func (p *Pool) Oriented(tokenIn string, in, out decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if p.TokenA == tokenIn {
		return in, out
	}
	return out, in
}

// Clone returns a copy that shares no mutable state with p.
func (p *Pool) Clone() *Pool {
	c := *p
	return &c
}
