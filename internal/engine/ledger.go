package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Balance returns the wallet's encrypted balance for token. A wallet seen
// for the first time is seeded with a random amount; later calls return
// the stored handle unchanged.
func (e *Engine) Balance(ctx context.Context, wallet, token string) (*models.Balance, error) {
	token = normalizeToken(token)
	if wallet == "" {
		return nil, invalid("Wallet address required")
	}
	if token == "" {
		return nil, invalid("Missing required fields")
	}

	unlock := e.locks.Lock(balanceKey(wallet, token))
	defer unlock()

	b, err := e.store.GetBalance(ctx, wallet, token)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}

	amount := e.seedAmount()
	handle, err := e.vault.Encrypt(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt seed balance: %w", err)
	}
	b, err = e.store.UpsertBalance(ctx, wallet, token, handle)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"wallet": wallet,
		"token":  token,
	}).Debug("seeded balance")
	return b, nil
}

// Transactions lists a wallet's transactions, newest first.
func (e *Engine) Transactions(ctx context.Context, wallet string) ([]*models.Transaction, error) {
	if wallet == "" {
		return nil, invalid("Wallet address required")
	}
	return e.store.ListTransactionsByWallet(ctx, wallet)
}

// RecentTransactions returns up to limit transactions across all wallets.
func (e *Engine) RecentTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	txs, err := e.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// SetTransactionStatus settles a wallet's pending transaction as completed
// or failed. Settled transactions are final.
func (e *Engine) SetTransactionStatus(ctx context.Context, wallet, id string, status models.TransactionStatus) (*models.Transaction, error) {
	if wallet == "" || id == "" {
		return nil, invalid("Missing required fields")
	}
	if !status.Valid() || status == models.StatusPending {
		return nil, invalid("invalid status %q", status)
	}
	txs, err := e.store.ListTransactionsByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var current *models.Transaction
	for _, tx := range txs {
		if tx.ID == id {
			current = tx
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
	}
	if current.Status != models.StatusPending {
		return nil, invalid("transaction is already %s", current.Status)
	}

	updated, err := e.store.UpdateTransactionStatus(ctx, id, status, nil)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, updated)

	e.logger.WithFields(logrus.Fields{
		"wallet": wallet,
		"tx":     id,
		"status": status,
	}).Info("transaction settled")
	return updated, nil
}

type Holding struct {
	Token    string          `json:"token"`
	Amount   decimal.Decimal `json:"amount"`
	PriceUSD float64         `json:"priceUsd"`
	ValueUSD float64         `json:"valueUsd"`
}

type Portfolio struct {
	WalletAddress string    `json:"walletAddress"`
	Holdings      []Holding `json:"holdings"`
	TotalUSD      float64   `json:"totalUsd"`
}

// Portfolio decrypts every balance of wallet and values it in USD.
func (e *Engine) Portfolio(ctx context.Context, wallet string) (*Portfolio, error) {
	if wallet == "" {
		return nil, invalid("Wallet address required")
	}
	balances, err := e.store.ListBalances(ctx, wallet)
	if err != nil {
		return nil, err
	}

	p := &Portfolio{WalletAddress: wallet, Holdings: make([]Holding, 0, len(balances))}
	for _, b := range balances {
		amount, err := e.vault.Decrypt(b.EncryptedValue)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt %s balance: %w", b.Token, err)
		}
		price := e.prices.GetPrice(b.Token)
		value := amount.InexactFloat64() * price
		p.Holdings = append(p.Holdings, Holding{Token: b.Token, Amount: amount, PriceUSD: price, ValueUSD: value})
		p.TotalUSD += value
	}
	sort.Slice(p.Holdings, func(i, j int) bool { return p.Holdings[i].Token < p.Holdings[j].Token })
	return p, nil
}

type Analytics struct {
	TotalVolume24h    float64 `json:"totalVolume24h"`
	TotalLiquidity    float64 `json:"totalLiquidity"`
	ActivePools       int     `json:"activePools"`
	AvgTradeSize      float64 `json:"avgTradeSize"`
	TotalTransactions int     `json:"totalTransactions"`
	Transactions24h   int     `json:"transactions24h"`
}

// Analytics aggregates USD swap volume over the trailing 24h and the USD
// value locked in pools.
func (e *Engine) Analytics(ctx context.Context) (*Analytics, error) {
	txs, err := e.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	pools, err := e.store.ListPools(ctx)
	if err != nil {
		return nil, err
	}

	out := &Analytics{ActivePools: len(pools), TotalTransactions: len(txs)}

	cutoff := e.now().Add(-24 * time.Hour)
	for _, tx := range txs {
		if tx.Type != models.TransactionSwap || !tx.Timestamp.After(cutoff) {
			continue
		}
		out.Transactions24h++
		out.TotalVolume24h += tx.Amount.InexactFloat64() * e.prices.GetPrice(tx.FromToken)
	}
	if out.Transactions24h > 0 {
		out.AvgTradeSize = out.TotalVolume24h / float64(out.Transactions24h)
	}

	for _, p := range pools {
		out.TotalLiquidity += p.ReserveA.InexactFloat64()*e.prices.GetPrice(p.TokenA) +
			p.ReserveB.InexactFloat64()*e.prices.GetPrice(p.TokenB)
	}
	return out, nil
}
