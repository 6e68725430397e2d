package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/confidential-dex/internal/amm"
	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type LiquidityRequest struct {
	WalletAddress string
	TokenA        string
	TokenB        string
	AmountA       decimal.Decimal
	AmountB       decimal.Decimal
	Fee           int // basis points; pool creation only, 0 means default
}

type LiquidityResult struct {
	TxHash      string
	Pool        *models.Pool
	Transaction *models.Transaction
}

func (r *LiquidityRequest) normalize() error {
	r.TokenA = normalizeToken(r.TokenA)
	r.TokenB = normalizeToken(r.TokenB)
	if r.WalletAddress == "" || r.TokenA == "" || r.TokenB == "" || r.AmountA.IsZero() || r.AmountB.IsZero() {
		return invalid("Missing required fields")
	}
	if r.AmountA.IsNegative() || r.AmountB.IsNegative() {
		return invalid("amounts must be positive")
	}
	if r.TokenA == r.TokenB {
		return invalid("tokenA and tokenB must differ")
	}
	if r.Fee < 0 || r.Fee >= amm.FeeDenominator {
		return invalid("fee must be between 0 and %d bps", amm.FeeDenominator-1)
	}
	return nil
}

// CreatePool opens a pool seeded with the given amounts, debiting the
// creator. An existing pool for the pair in either order is a conflict and
// is left untouched.
func (e *Engine) CreatePool(ctx context.Context, req LiquidityRequest) (*LiquidityResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(
		pairKey(req.TokenA, req.TokenB),
		balanceKey(req.WalletAddress, req.TokenA),
		balanceKey(req.WalletAddress, req.TokenB),
	)
	defer unlock()

	existing, err := e.store.GetPool(ctx, req.TokenA, req.TokenB)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPoolExists
	}

	st, err := e.prepareSettlement(ctx, req)
	if err != nil {
		return nil, err
	}

	pool, err := e.store.CreatePool(ctx, &models.Pool{
		TokenA:         req.TokenA,
		TokenB:         req.TokenB,
		ReserveA:       req.AmountA,
		ReserveB:       req.AmountB,
		Fee:            amm.EffectiveFee(req.Fee),
		TotalLiquidity: amm.InitialLiquidity(req.AmountA, req.AmountB),
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrPoolExists
		}
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	res, err := e.settleLiquidity(ctx, req, st, pool)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"wallet":    req.WalletAddress,
		"pool":      pool.ID,
		"pair":      pool.Pair(),
		"liquidity": pool.TotalLiquidity.StringFixed(6),
	}).Info("pool created")
	return res, nil
}

// AddLiquidity adds the amounts straight onto the pool's reserves. The
// ratio is not enforced, so callers can skew the pool price.
func (e *Engine) AddLiquidity(ctx context.Context, req LiquidityRequest) (*LiquidityResult, error) {
	req.Fee = 0
	if err := req.normalize(); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(
		pairKey(req.TokenA, req.TokenB),
		balanceKey(req.WalletAddress, req.TokenA),
		balanceKey(req.WalletAddress, req.TokenB),
	)
	defer unlock()

	pool, err := e.store.GetPool(ctx, req.TokenA, req.TokenB)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}

	st, err := e.prepareSettlement(ctx, req)
	if err != nil {
		return nil, err
	}

	resA, resB := pool.Reserves(req.TokenA)
	newA, newB := pool.Oriented(req.TokenA, resA.Add(req.AmountA), resB.Add(req.AmountB))
	updated, err := e.store.UpdatePoolReserves(ctx, pool.ID, newA, newB)
	if err != nil {
		return nil, fmt.Errorf("failed to update reserves: %w", err)
	}

	res, err := e.settleLiquidity(ctx, req, st, updated)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"wallet":  req.WalletAddress,
		"pool":    updated.ID,
		"amountA": req.AmountA.String(),
		"amountB": req.AmountB.String(),
	}).Info("liquidity added")
	return res, nil
}

// liquiditySettlement holds the encoded debits and the transaction for a
// liquidity operation, built before any pool is touched.
type liquiditySettlement struct {
	debits []pendingBalance
	tx     *models.Transaction
	hash   string
}

func (e *Engine) prepareSettlement(ctx context.Context, req LiquidityRequest) (*liquiditySettlement, error) {
	debitA, err := e.prepareBalance(ctx, req.WalletAddress, req.TokenA, req.AmountA.Neg())
	if err != nil {
		return nil, err
	}
	debitB, err := e.prepareBalance(ctx, req.WalletAddress, req.TokenB, req.AmountB.Neg())
	if err != nil {
		return nil, err
	}
	tx, hash, err := e.newTransaction(req.WalletAddress, models.TransactionLiquidity, req.TokenA, req.TokenB, req.AmountA, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	return &liquiditySettlement{debits: []pendingBalance{debitA, debitB}, tx: tx, hash: hash}, nil
}

// settleLiquidity writes the prepared debits and records the transaction.
func (e *Engine) settleLiquidity(ctx context.Context, req LiquidityRequest, st *liquiditySettlement, pool *models.Pool) (*LiquidityResult, error) {
	if err := e.writeBalances(ctx, req.WalletAddress, st.debits...); err != nil {
		return nil, err
	}
	saved, err := e.recordTransaction(ctx, st.tx)
	if err != nil {
		return nil, err
	}
	return &LiquidityResult{TxHash: st.hash, Pool: pool, Transaction: saved}, nil
}

// Pools lists every pool.
func (e *Engine) Pools(ctx context.Context) ([]*models.Pool, error) {
	return e.store.ListPools(ctx)
}
