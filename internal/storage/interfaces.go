package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/shopspring/decimal"
)

// PoolStore defines persistence for liquidity pools
type PoolStore interface {
	// CreatePool inserts a pool; returns ErrConflict if the pair exists in either order
	CreatePool(ctx context.Context, pool *models.Pool) (*models.Pool, error)

	// GetPool finds the pool for a pair regardless of argument order; nil if absent
	GetPool(ctx context.Context, tokenA, tokenB string) (*models.Pool, error)

	// GetPoolByID returns the pool with the given id; nil if absent
	GetPoolByID(ctx context.Context, id string) (*models.Pool, error)

	// ListPools returns every pool, oldest first
	ListPools(ctx context.Context) ([]*models.Pool, error)

	// UpdatePoolReserves overwrites both reserves; returns ErrNotFound for an unknown id
	UpdatePoolReserves(ctx context.Context, id string, reserveA, reserveB decimal.Decimal) (*models.Pool, error)
}

// BalanceStore defines persistence for encrypted wallet balances
type BalanceStore interface {
	// GetBalance returns the (wallet, token) balance; nil if absent
	GetBalance(ctx context.Context, wallet, token string) (*models.Balance, error)

	// UpsertBalance updates the (wallet, token) record in place or inserts it
	UpsertBalance(ctx context.Context, wallet, token, encryptedValue string) (*models.Balance, error)

	// ListBalances returns all balances held by a wallet
	ListBalances(ctx context.Context, wallet string) ([]*models.Balance, error)
}

// TransactionStore defines persistence for the transaction log
type TransactionStore interface {
	// CreateTransaction appends a transaction, assigning id and timestamp when unset
	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)

	// ListTransactionsByWallet returns a wallet's transactions, newest first
	ListTransactionsByWallet(ctx context.Context, wallet string) ([]*models.Transaction, error)

	// ListTransactions returns all transactions, newest first
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)

	// UpdateTransactionStatus changes status and, when txHash is non-nil, the hash
	UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus, txHash *string) (*models.Transaction, error)
}

// OrderStore defines persistence for limit orders
type OrderStore interface {
	// CreateLimitOrder inserts an order, assigning id and creation time when unset
	CreateLimitOrder(ctx context.Context, order *models.LimitOrder) (*models.LimitOrder, error)

	// GetLimitOrder returns the order with the given id; nil if absent
	GetLimitOrder(ctx context.Context, id string) (*models.LimitOrder, error)

	// ListLimitOrdersByWallet returns a wallet's orders, newest first
	ListLimitOrdersByWallet(ctx context.Context, wallet string) ([]*models.LimitOrder, error)

	// UpdateLimitOrderStatus sets the status, stamping executedAt on execution
	UpdateLimitOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.LimitOrder, error)
}

// Store is the ledger and pool persistence used by the engine. The in-memory
// and Postgres backends are interchangeable behind it.
type Store interface {
	PoolStore
	BalanceStore
	TransactionStore
	OrderStore

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close releases the store's resources
	io.Closer
}

// TransactionSink receives every persisted transaction and again on each
// status change (cache, pub/sub, archive)
type TransactionSink interface {
	RecordTransaction(ctx context.Context, tx *models.Transaction) error
}

// PriceCache mirrors oracle prices to a shared cache
type PriceCache interface {
	// UpdatePrice stores the current USD price for a token
	UpdatePrice(ctx context.Context, token string, price float64) error

	// GetPrice retrieves the cached USD price; ErrNotFound if absent
	GetPrice(ctx context.Context, token string) (float64, error)
}
