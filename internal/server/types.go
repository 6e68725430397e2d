package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/engine"
	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/shopspring/decimal"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

type HealthResponse struct {
	OK    bool   `json:"ok"`
	Store string `json:"store"` // memory or postgres
	Error string `json:"error,omitempty"`
}

// flexInt accepts a JSON number or a numeric string; form fields often
// arrive as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		v, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		n = int(v)
	}
	*f = flexInt(n)
	return nil
}

// SwapRequest covers both market and limit orders. Amounts may be JSON
// strings or numbers.
type SwapRequest struct {
	WalletAddress string           `json:"walletAddress"`
	TokenIn       string           `json:"tokenIn"`
	TokenOut      string           `json:"tokenOut"`
	AmountIn      decimal.Decimal  `json:"amountIn"`
	MinAmountOut  *decimal.Decimal `json:"minAmountOut"`
	OrderType     string           `json:"orderType"` // market (default) or limit
	LimitPrice    *decimal.Decimal `json:"limitPrice"`
}

type SwapResponse struct {
	Success     bool                `json:"success"`
	TxHash      string              `json:"txHash"`
	AmountOut   string              `json:"amountOut"`
	Transaction *models.Transaction `json:"transaction"`
}

type LimitSwapResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	OrderID     string              `json:"orderId"`
	TxHash      string              `json:"txHash"`
	Transaction *models.Transaction `json:"transaction"`
}

type LimitOrderRequest struct {
	WalletAddress string          `json:"walletAddress"`
	TokenIn       string          `json:"tokenIn"`
	TokenOut      string          `json:"tokenOut"`
	AmountIn      decimal.Decimal `json:"amountIn"`
	LimitPrice    decimal.Decimal `json:"limitPrice"`
}

type LimitOrderResponse struct {
	Success bool               `json:"success"`
	OrderID string             `json:"orderId"`
	Order   *models.LimitOrder `json:"order"`
}

type CancelOrderRequest struct {
	WalletAddress string `json:"walletAddress"`
	OrderID       string `json:"orderId"`
}

type OrderResponse struct {
	Success bool               `json:"success"`
	Order   *models.LimitOrder `json:"order"`
}

type LiquidityRequest struct {
	WalletAddress string          `json:"walletAddress"`
	TokenA        string          `json:"tokenA"`
	TokenB        string          `json:"tokenB"`
	AmountA       decimal.Decimal `json:"amountA"`
	AmountB       decimal.Decimal `json:"amountB"`
	Fee           flexInt         `json:"fee"` // bps, pool creation only
}

type PoolCreateResponse struct {
	Success     bool                `json:"success"`
	TxHash      string              `json:"txHash"`
	Pool        *models.Pool        `json:"pool"`
	Transaction *models.Transaction `json:"transaction"`
}

type LiquidityResponse struct {
	Success     bool                `json:"success"`
	TxHash      string              `json:"txHash"`
	Transaction *models.Transaction `json:"transaction"`
}

type BalanceResponse struct {
	Success          bool   `json:"success"`
	EncryptedBalance string `json:"encryptedBalance"`
	Token            string `json:"token"`
}

type TransactionStatusRequest struct {
	WalletAddress string                   `json:"walletAddress"`
	Status        models.TransactionStatus `json:"status"`
}

type TransactionResponse struct {
	Success     bool                `json:"success"`
	Transaction *models.Transaction `json:"transaction"`
}

type PricesResponse struct {
	Success     bool               `json:"success"`
	Prices      map[string]float64 `json:"prices"`
	LastUpdated time.Time          `json:"lastUpdated"`
}

type ExchangeRateResponse struct {
	Success  bool    `json:"success"`
	TokenIn  string  `json:"tokenIn"`
	TokenOut string  `json:"tokenOut"`
	Rate     float64 `json:"rate"`
	PriceIn  float64 `json:"priceIn"`
	PriceOut float64 `json:"priceOut"`
}

type QuoteResponse struct {
	Success bool          `json:"success"`
	Quote   *engine.Quote `json:"quote"`
}

type PortfolioResponse struct {
	Success   bool              `json:"success"`
	Portfolio *engine.Portfolio `json:"portfolio"`
}

type AnalyticsResponse struct {
	Success bool              `json:"success"`
	Data    *engine.Analytics `json:"data"`
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question      string `json:"question"`      // Natural language question about DEX activity
	Model         string `json:"model"`         // Optional AI model override
	WalletAddress string `json:"walletAddress"` // Optional, limits the query to one wallet
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`              // Generated SQL query
	Answer string `json:"answer"`           // Natural language answer
	Rows   int    `json:"rows"`             // Rows the query returned
	Wallet string `json:"wallet,omitempty"` // Wallet scope, when given
	TookMs int64  `json:"took_ms"`          // Execution time in milliseconds
}

var _ json.Unmarshaler = (*flexInt)(nil)
