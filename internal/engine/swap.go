package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/confidential-dex/internal/amm"
	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SwapRequest struct {
	WalletAddress string
	TokenIn       string
	TokenOut      string
	AmountIn      decimal.Decimal
	MinAmountOut  *decimal.Decimal // optional slippage guard
}

type SwapResult struct {
	TxHash      string
	AmountOut   decimal.Decimal
	Pool        *models.Pool
	Transaction *models.Transaction
}

func (r *SwapRequest) normalize() error {
	r.TokenIn = normalizeToken(r.TokenIn)
	r.TokenOut = normalizeToken(r.TokenOut)
	if r.WalletAddress == "" || r.TokenIn == "" || r.TokenOut == "" || r.AmountIn.IsZero() {
		return invalid("Missing required fields")
	}
	if r.AmountIn.IsNegative() {
		return invalid("amountIn must be positive")
	}
	if r.TokenIn == r.TokenOut {
		return invalid("tokenIn and tokenOut must differ")
	}
	return nil
}

// Swap executes a market order against the pool for the pair. Nothing is
// mutated when the pool is missing or the output falls below MinAmountOut.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(
		pairKey(req.TokenIn, req.TokenOut),
		balanceKey(req.WalletAddress, req.TokenIn),
		balanceKey(req.WalletAddress, req.TokenOut),
	)
	defer unlock()

	pool, err := e.store.GetPool(ctx, req.TokenIn, req.TokenOut)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}

	reserveIn, reserveOut := pool.Reserves(req.TokenIn)
	amountOut, err := amm.SwapOutput(req.AmountIn, reserveIn, reserveOut, pool.Fee)
	if err != nil {
		if errors.Is(err, amm.ErrInsufficientLiquidity) {
			return nil, invalid("Pool has insufficient liquidity")
		}
		return nil, invalid("%s", err.Error())
	}

	if req.MinAmountOut != nil && amountOut.LessThan(*req.MinAmountOut) {
		return nil, ErrSlippageExceeded
	}

	// Balances and the transaction are built before the pool moves.
	debit, err := e.prepareBalance(ctx, req.WalletAddress, req.TokenIn, req.AmountIn.Neg())
	if err != nil {
		return nil, err
	}
	credit, err := e.prepareBalance(ctx, req.WalletAddress, req.TokenOut, amountOut)
	if err != nil {
		return nil, err
	}
	tx, hash, err := e.newTransaction(req.WalletAddress, models.TransactionSwap, req.TokenIn, req.TokenOut, req.AmountIn, models.StatusCompleted)
	if err != nil {
		return nil, err
	}

	newA, newB := pool.Oriented(req.TokenIn, reserveIn.Add(req.AmountIn), reserveOut.Sub(amountOut))
	updated, err := e.store.UpdatePoolReserves(ctx, pool.ID, newA, newB)
	if err != nil {
		return nil, fmt.Errorf("failed to update reserves: %w", err)
	}
	if err := e.writeBalances(ctx, req.WalletAddress, debit, credit); err != nil {
		return nil, err
	}

	saved, err := e.recordTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"wallet":    req.WalletAddress,
		"pair":      updated.Pair(),
		"amountIn":  req.AmountIn.String(),
		"amountOut": amountOut.StringFixed(6),
	}).Info("swap executed")

	return &SwapResult{TxHash: hash, AmountOut: amountOut, Pool: updated, Transaction: saved}, nil
}

type LimitOrderRequest struct {
	WalletAddress string
	TokenIn       string
	TokenOut      string
	AmountIn      decimal.Decimal
	LimitPrice    decimal.Decimal
}

type LimitSwapResult struct {
	Order       *models.LimitOrder
	TxHash      string
	Transaction *models.Transaction
}

func (r *LimitOrderRequest) normalize() error {
	r.TokenIn = normalizeToken(r.TokenIn)
	r.TokenOut = normalizeToken(r.TokenOut)
	if r.WalletAddress == "" || r.TokenIn == "" || r.TokenOut == "" || r.AmountIn.IsZero() {
		return invalid("Missing required fields")
	}
	if r.LimitPrice.IsZero() {
		return invalid("Limit price required for limit orders")
	}
	if r.AmountIn.IsNegative() || r.LimitPrice.IsNegative() {
		return invalid("amountIn and limitPrice must be positive")
	}
	if r.TokenIn == r.TokenOut {
		return invalid("tokenIn and tokenOut must differ")
	}
	return nil
}

// PlaceLimitSwap records a resting order plus a pending swap transaction.
// Pools and balances are left untouched; no matcher ever fills the order.
func (e *Engine) PlaceLimitSwap(ctx context.Context, req LimitOrderRequest) (*LimitSwapResult, error) {
	order, err := e.CreateLimitOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	tx, hash, err := e.newTransaction(req.WalletAddress, models.TransactionSwap, order.TokenIn, order.TokenOut, order.AmountIn, models.StatusPending)
	if err != nil {
		return nil, err
	}
	saved, err := e.recordTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &LimitSwapResult{Order: order, TxHash: hash, Transaction: saved}, nil
}

// CreateLimitOrder persists an active limit order and nothing else.
func (e *Engine) CreateLimitOrder(ctx context.Context, req LimitOrderRequest) (*models.LimitOrder, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	order, err := e.store.CreateLimitOrder(ctx, &models.LimitOrder{
		WalletAddress: req.WalletAddress,
		TokenIn:       req.TokenIn,
		TokenOut:      req.TokenOut,
		AmountIn:      req.AmountIn,
		LimitPrice:    req.LimitPrice,
		Status:        models.OrderActive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create limit order: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"wallet": req.WalletAddress,
		"order":  order.ID,
		"pair":   req.TokenIn + "/" + req.TokenOut,
		"limit":  req.LimitPrice.String(),
	}).Info("limit order created")
	return order, nil
}

// CancelLimitOrder moves an active order owned by wallet to cancelled.
func (e *Engine) CancelLimitOrder(ctx context.Context, wallet, orderID string) (*models.LimitOrder, error) {
	if wallet == "" || orderID == "" {
		return nil, invalid("Missing required fields")
	}
	order, err := e.store.GetLimitOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.WalletAddress != wallet {
		return nil, ErrOrderNotFound
	}
	if order.Status != models.OrderActive {
		return nil, invalid("order is %s", order.Status)
	}
	return e.store.UpdateLimitOrderStatus(ctx, orderID, models.OrderCancelled)
}

// LimitOrders lists a wallet's orders, newest first.
func (e *Engine) LimitOrders(ctx context.Context, wallet string) ([]*models.LimitOrder, error) {
	if wallet == "" {
		return nil, invalid("Wallet address required")
	}
	return e.store.ListLimitOrdersByWallet(ctx, wallet)
}

type Quote struct {
	TokenIn         string          `json:"tokenIn"`
	TokenOut        string          `json:"tokenOut"`
	AmountIn        decimal.Decimal `json:"amountIn"`
	AmountOut       decimal.Decimal `json:"amountOut"`
	MinAmountOut    decimal.Decimal `json:"minAmountOut"`
	OracleAmountOut decimal.Decimal `json:"oracleAmountOut"`
	PriceImpact     float64         `json:"priceImpact"`
	Fee             int             `json:"fee"`
	PoolID          string          `json:"poolId"`
}

// Quote prices a market swap without executing it. slippageBps sets
// MinAmountOut.
func (e *Engine) Quote(ctx context.Context, tokenIn, tokenOut string, amountIn decimal.Decimal, slippageBps int) (*Quote, error) {
	req := SwapRequest{WalletAddress: "quote", TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountIn}
	if err := req.normalize(); err != nil {
		return nil, err
	}

	pool, err := e.store.GetPool(ctx, req.TokenIn, req.TokenOut)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}

	reserveIn, reserveOut := pool.Reserves(req.TokenIn)
	out, err := amm.SwapOutput(req.AmountIn, reserveIn, reserveOut, pool.Fee)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	fee := amm.EffectiveFee(pool.Fee)

	return &Quote{
		TokenIn:         req.TokenIn,
		TokenOut:        req.TokenOut,
		AmountIn:        req.AmountIn,
		AmountOut:       out,
		MinAmountOut:    amm.ApplySlippage(out, slippageBps),
		OracleAmountOut: e.prices.CalculateSwapOutput(req.TokenIn, req.TokenOut, req.AmountIn, fee),
		PriceImpact:     e.prices.CalculatePriceImpact(req.AmountIn, reserveIn, reserveOut),
		Fee:             fee,
		PoolID:          pool.ID,
	}, nil
}
