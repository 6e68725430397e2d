package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// DefaultPools returns the pools every fresh store starts with.
func DefaultPools() []*models.Pool {
	return []*models.Pool{
		{
			TokenA:         "ETH",
			TokenB:         "USDC",
			ReserveA:       decimal.RequireFromString("100.0"),
			ReserveB:       decimal.RequireFromString("200000.0"),
			Fee:            30,
			TotalLiquidity: decimal.RequireFromString("14142.135"),
		},
		{
			TokenA:         "ETH",
			TokenB:         "DAI",
			ReserveA:       decimal.RequireFromString("50.0"),
			ReserveB:       decimal.RequireFromString("100000.0"),
			Fee:            30,
			TotalLiquidity: decimal.RequireFromString("7071.067"),
		},
		{
			TokenA:         "USDC",
			TokenB:         "DAI",
			ReserveA:       decimal.RequireFromString("10000.0"),
			ReserveB:       decimal.RequireFromString("10000.0"),
			Fee:            10,
			TotalLiquidity: decimal.RequireFromString("10000.0"),
		},
	}
}

// Seed inserts the default pools when the store holds none.
// Returns the number of pools created.
func Seed(ctx context.Context, s PoolStore) (int, error) {
	existing, err := s.ListPools(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pools: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	n := 0
	for _, p := range DefaultPools() {
		if _, err := s.CreatePool(ctx, p); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return n, fmt.Errorf("failed to seed pool %s: %w", p.Pair(), err)
		}
		n++
	}
	return n, nil
}
