package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/ai"
	"github.com/aman-zulfiqar/confidential-dex/internal/engine"
	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PriceBoard is the read side of the price oracle.
type PriceBoard interface {
	GetPrice(token string) float64
	GetAllPrices() (map[string]float64, time.Time)
	GetExchangeRate(tokenIn, tokenOut string) float64
}

// RecentFeed serves the cross-wallet recent transaction list.
type RecentFeed interface {
	GetRecentTransactions(ctx context.Context, limit int64) ([]*models.Transaction, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Asker interface {
	AskQuestion(ctx context.Context, q ai.Question) (*ai.AskResult, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine       *engine.Engine
	Oracle       PriceBoard
	Recent       RecentFeed // optional, Redis-backed
	Store        Pinger
	StoreKind    string
	AI           Asker          // optional
	AIBaseConfig ai.AgentConfig // base for per-request model overrides
	DevMode      bool           // Enable detailed error responses in development
	Logger       *logrus.Logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail renders an engine error with its mapped status.
func (h *Handlers) fail(c echo.Context, err error) error {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return h.err(c, code, msg, map[string]any{"err": err.Error()})
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{OK: true, Store: h.StoreKind}
	if h.Store != nil {
		ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			resp.OK = false
			resp.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) Prices(c echo.Context) error {
	prices, updated := h.Oracle.GetAllPrices()
	return c.JSON(http.StatusOK, PricesResponse{Success: true, Prices: prices, LastUpdated: updated})
}

func (h *Handlers) ExchangeRate(c echo.Context) error {
	rawIn, rawOut := c.QueryParam("tokenIn"), c.QueryParam("tokenOut")
	in := strings.ToUpper(strings.TrimSpace(rawIn))
	out := strings.ToUpper(strings.TrimSpace(rawOut))
	if in == "" || out == "" {
		return h.err(c, http.StatusBadRequest, "Missing tokenIn or tokenOut", nil)
	}
	return c.JSON(http.StatusOK, ExchangeRateResponse{
		Success:  true,
		TokenIn:  rawIn,
		TokenOut: rawOut,
		Rate:     h.Oracle.GetExchangeRate(in, out),
		PriceIn:  h.Oracle.GetPrice(in),
		PriceOut: h.Oracle.GetPrice(out),
	})
}

// Swap executes a market order or, with orderType "limit", records a
// resting limit order.
func (h *Handlers) Swap(c echo.Context) error {
	var req SwapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", map[string]any{"err": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if strings.EqualFold(strings.TrimSpace(req.OrderType), "limit") {
		var limit decimal.Decimal
		if req.LimitPrice != nil {
			limit = *req.LimitPrice
		}
		// the engine checks required fields before the limit price
		res, err := h.Engine.PlaceLimitSwap(ctx, engine.LimitOrderRequest{
			WalletAddress: req.WalletAddress,
			TokenIn:       req.TokenIn,
			TokenOut:      req.TokenOut,
			AmountIn:      req.AmountIn,
			LimitPrice:    limit,
		})
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(http.StatusOK, LimitSwapResponse{
			Success:     true,
			Message:     "Limit order created",
			OrderID:     res.Order.ID,
			TxHash:      res.TxHash,
			Transaction: res.Transaction,
		})
	}

	res, err := h.Engine.Swap(ctx, engine.SwapRequest{
		WalletAddress: req.WalletAddress,
		TokenIn:       req.TokenIn,
		TokenOut:      req.TokenOut,
		AmountIn:      req.AmountIn,
		MinAmountOut:  req.MinAmountOut,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, SwapResponse{
		Success:     true,
		TxHash:      res.TxHash,
		AmountOut:   res.AmountOut.StringFixed(6),
		Transaction: res.Transaction,
	})
}

func (h *Handlers) CreatePool(c echo.Context) error {
	var req LiquidityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", map[string]any{"err": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.CreatePool(ctx, req.toEngine())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, PoolCreateResponse{Success: true, TxHash: res.TxHash, Pool: res.Pool, Transaction: res.Transaction})
}

func (h *Handlers) AddLiquidity(c echo.Context) error {
	var req LiquidityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", map[string]any{"err": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.AddLiquidity(ctx, req.toEngine())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, LiquidityResponse{Success: true, TxHash: res.TxHash, Transaction: res.Transaction})
}

func (r LiquidityRequest) toEngine() engine.LiquidityRequest {
	return engine.LiquidityRequest{
		WalletAddress: r.WalletAddress,
		TokenA:        r.TokenA,
		TokenB:        r.TokenB,
		AmountA:       r.AmountA,
		AmountB:       r.AmountB,
		Fee:           int(r.Fee),
	}
}

func (h *Handlers) Balance(c echo.Context) error {
	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return h.err(c, http.StatusBadRequest, "Wallet address required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Engine.Balance(ctx, address, c.Param("token"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, BalanceResponse{Success: true, EncryptedBalance: b.EncryptedValue, Token: c.Param("token")})
}

func (h *Handlers) Transactions(c echo.Context) error {
	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return h.err(c, http.StatusBadRequest, "Wallet address required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	txs, err := h.Engine.Transactions(ctx, address)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(txs))
}

// RecentTransactions returns the latest transactions across wallets with optional limit parameter
// Accepts limit query parameter (default: 50, range: 1-200)
func (h *Handlers) RecentTransactions(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if h.Recent != nil {
		items, err := h.Recent.GetRecentTransactions(ctx, int64(limit))
		if err == nil {
			return c.JSON(http.StatusOK, nonNil(items))
		}
		h.Logger.WithError(err).Warn("recent feed unavailable, falling back to store")
	}

	items, err := h.Engine.RecentTransactions(ctx, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handlers) SetTransactionStatus(c echo.Context) error {
	var req TransactionStatusRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", map[string]any{"err": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Engine.SetTransactionStatus(ctx, req.WalletAddress, c.Param("id"), req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, TransactionResponse{Success: true, Transaction: tx})
}

func (h *Handlers) CreateLimitOrder(c echo.Context) error {
	var req LimitOrderRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", map[string]any{"err": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	order, err := h.Engine.CreateLimitOrder(ctx, engine.LimitOrderRequest{
		WalletAddress: req.WalletAddress,
		TokenIn:       req.TokenIn,
		TokenOut:      req.TokenOut,
		AmountIn:      req.AmountIn,
		LimitPrice:    req.LimitPrice,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, LimitOrderResponse{Success: true, OrderID: order.ID, Order: order})
}

func (h *Handlers) CancelLimitOrder(c echo.Context) error {
	var req CancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", map[string]any{"err": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	order, err := h.Engine.CancelLimitOrder(ctx, req.WalletAddress, req.OrderID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, OrderResponse{Success: true, Order: order})
}

func (h *Handlers) LimitOrders(c echo.Context) error {
	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return h.err(c, http.StatusBadRequest, "Wallet address required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Engine.LimitOrders(ctx, address)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(orders))
}

func (h *Handlers) Pools(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pools, err := h.Engine.Pools(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(pools))
}

// Quote prices a market swap without executing it.
// Query: tokenIn, tokenOut, amount, optional slippageBps (default 50).
func (h *Handlers) Quote(c echo.Context) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.QueryParam("amount")))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a decimal number"})
	}
	slippage := 50
	if s := c.QueryParam("slippageBps"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n >= 10000 {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "min 0 max 9999"})
		}
		slippage = n
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Engine.Quote(ctx, c.QueryParam("tokenIn"), c.QueryParam("tokenOut"), amount, slippage)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, QuoteResponse{Success: true, Quote: q})
}

func (h *Handlers) Portfolio(c echo.Context) error {
	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return h.err(c, http.StatusBadRequest, "Wallet address required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Engine.Portfolio(ctx, address)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, PortfolioResponse{Success: true, Portfolio: p})
}

func (h *Handlers) Analytics(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	stats, err := h.Engine.Analytics(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, AnalyticsResponse{Success: true, Data: stats})
}

// AIAsk answers a natural language question about DEX activity.
// Supports an optional model override and wallet scope.
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		tmp, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", map[string]any{"err": err.Error()})
		}
		defer func() {
			_ = tmp.Close()
		}()
		agent = tmp
	}

	res, err := agent.AskQuestion(ctx, ai.Question{Text: req.Question, Wallet: req.WalletAddress})
	if err != nil {
		if errors.Is(err, ai.ErrInvalidWallet) {
			return h.err(c, http.StatusBadRequest, err.Error(), nil)
		}
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, AIAskResponse{
		SQL:    res.SQL,
		Answer: res.Answer,
		Rows:   res.Rows,
		Wallet: res.Wallet,
		TookMs: time.Since(start).Milliseconds(),
	})
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
