package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionSwap      TransactionType = "swap"
	TransactionLiquidity TransactionType = "liquidity"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderActive    OrderStatus = "active"
	OrderExecuted  OrderStatus = "executed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderActive, OrderExecuted, OrderCancelled:
		return true
	}
	return false
}

// Balance holds a wallet's opaque encrypted amount of one token.
type Balance struct {
	ID             string    `json:"id"`
	WalletAddress  string    `json:"walletAddress"`
	Token          string    `json:"token"`
	EncryptedValue string    `json:"encryptedValue"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Transaction is an append-only record of a swap or liquidity operation.
type Transaction struct {
	ID            string            `json:"id"`
	WalletAddress string            `json:"walletAddress"`
	Type          TransactionType   `json:"type"`
	FromToken     string            `json:"fromToken"`
	ToToken       string            `json:"toToken"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        TransactionStatus `json:"status"`
	TxHash        *string           `json:"txHash"`
	Timestamp     time.Time         `json:"timestamp"`
	Encrypted     bool              `json:"encrypted"`
}

// LimitOrder is a resting order; nothing fills it automatically.
type LimitOrder struct {
	ID            string          `json:"id"`
	WalletAddress string          `json:"walletAddress"`
	TokenIn       string          `json:"tokenIn"`
	TokenOut      string          `json:"tokenOut"`
	AmountIn      decimal.Decimal `json:"amountIn"`
	LimitPrice    decimal.Decimal `json:"limitPrice"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ExecutedAt    *time.Time      `json:"executedAt"`
}
