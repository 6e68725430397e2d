// Package engine implements swaps, pool creation, liquidity and the
// encrypted wallet ledger on top of a storage.Store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrPoolNotFound     = errors.New("pool not found")
	ErrPoolExists       = errors.New("pool already exists")
	ErrSlippageExceeded = errors.New("insufficient output amount")
	ErrOrderNotFound    = errors.New("limit order not found")

	ErrTransactionNotFound = errors.New("transaction not found")
)

// ValidationError reports a request the engine refuses before touching state.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Vault encodes balances into opaque handles and mints transaction hashes.
type Vault interface {
	Encrypt(value decimal.Decimal) (string, error)
	Decrypt(handle string) (decimal.Decimal, error)
	GenerateTxHash() (string, error)
}

// PriceSource supplies USD prices for analytics and quotes.
type PriceSource interface {
	GetPrice(token string) float64
	CalculateSwapOutput(tokenIn, tokenOut string, amountIn decimal.Decimal, feeBps int) decimal.Decimal
	CalculatePriceImpact(amountIn, reserveIn, reserveOut decimal.Decimal) float64
}

type Config struct {
	Store  storage.Store
	Vault  Vault
	Prices PriceSource
	Sinks  []storage.TransactionSink
	Logger *logrus.Logger
}

type Engine struct {
	store  storage.Store
	vault  Vault
	prices PriceSource
	sinks  []storage.TransactionSink
	logger *logrus.Logger
	locks  *keyedMutex

	now        func() time.Time
	seedAmount func() decimal.Decimal
}

func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if cfg.Vault == nil {
		return nil, fmt.Errorf("engine: vault is required")
	}
	if cfg.Prices == nil {
		return nil, fmt.Errorf("engine: price source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Engine{
		store:      cfg.Store,
		vault:      cfg.Vault,
		prices:     cfg.Prices,
		sinks:      cfg.Sinks,
		logger:     cfg.Logger,
		locks:      newKeyedMutex(),
		now:        time.Now,
		seedAmount: randomSeedAmount,
	}, nil
}

// randomSeedAmount returns a starting balance in [10, 110).
func randomSeedAmount() decimal.Decimal {
	return decimal.NewFromFloat(rand.Float64()*100 + 10).Round(6)
}

func normalizeToken(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// readBalance decrypts the stored balance, treating a missing record as 0.
func (e *Engine) readBalance(ctx context.Context, wallet, token string) (decimal.Decimal, error) {
	b, err := e.store.GetBalance(ctx, wallet, token)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, nil
	}
	v, err := e.vault.Decrypt(b.EncryptedValue)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decrypt %s balance: %w", token, err)
	}
	return v, nil
}

// pendingBalance is an encoded balance ready to be written.
type pendingBalance struct {
	token  string
	handle string
}

// prepareBalance computes the wallet's balance after delta, flooring at
// zero, and encodes it without writing anything.
func (e *Engine) prepareBalance(ctx context.Context, wallet, token string, delta decimal.Decimal) (pendingBalance, error) {
	cur, err := e.readBalance(ctx, wallet, token)
	if err != nil {
		return pendingBalance{}, err
	}
	handle, err := e.vault.Encrypt(decimal.Max(decimal.Zero, cur.Add(delta)))
	if err != nil {
		return pendingBalance{}, invalid("%s balance cannot be encoded: %s", token, err.Error())
	}
	return pendingBalance{token: token, handle: handle}, nil
}

func (e *Engine) writeBalances(ctx context.Context, wallet string, pending ...pendingBalance) error {
	for _, p := range pending {
		if _, err := e.store.UpsertBalance(ctx, wallet, p.token, p.handle); err != nil {
			return fmt.Errorf("failed to write %s balance: %w", p.token, err)
		}
	}
	return nil
}

// recordTransaction persists tx and hands it to the sinks. Sink failures
// are logged only.
func (e *Engine) recordTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	saved, err := e.store.CreateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	e.publish(ctx, saved)
	return saved, nil
}

// publish hands tx to every sink. Sinks see a transaction again whenever
// its status changes.
func (e *Engine) publish(ctx context.Context, tx *models.Transaction) {
	for _, s := range e.sinks {
		if err := s.RecordTransaction(ctx, tx); err != nil {
			e.logger.WithError(err).WithField("tx", tx.ID).Warn("transaction sink failed")
		}
	}
}

func (e *Engine) newTransaction(wallet string, typ models.TransactionType, from, to string, amount decimal.Decimal, status models.TransactionStatus) (*models.Transaction, string, error) {
	hash, err := e.vault.GenerateTxHash()
	if err != nil {
		return nil, "", err
	}
	return &models.Transaction{
		WalletAddress: wallet,
		Type:          typ,
		FromToken:     from,
		ToToken:       to,
		Amount:        amount,
		Status:        status,
		TxHash:        &hash,
		Timestamp:     e.now().UTC(),
		Encrypted:     true,
	}, hash, nil
}
