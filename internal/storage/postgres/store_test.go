package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, url)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	require.NoError(t, s.Migrate(ctx))

	_, err = s.pool.Exec(ctx, `TRUNCATE pools, balances, transactions, limit_orders`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SeedAndLookup(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	n, err := storage.Seed(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ab, err := s.GetPool(ctx, "ETH", "USDC")
	require.NoError(t, err)
	ba, err := s.GetPool(ctx, "USDC", "ETH")
	require.NoError(t, err)
	require.NotNil(t, ab)
	assert.Equal(t, ab.ID, ba.ID)
	assert.True(t, ab.ReserveB.Equal(decimal.NewFromInt(200000)))
	assert.True(t, ab.TotalLiquidity.Equal(decimal.RequireFromString("14142.135")))

	missing, err := s.GetPool(ctx, "ETH", "WBTC")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_CreatePoolConflict(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePool(ctx, &models.Pool{TokenA: "ETH", TokenB: "DAI", ReserveA: decimal.NewFromInt(1), ReserveB: decimal.NewFromInt(2), Fee: 30})
	require.NoError(t, err)

	_, err = s.CreatePool(ctx, &models.Pool{TokenA: "DAI", TokenB: "ETH", ReserveA: decimal.NewFromInt(5), ReserveB: decimal.NewFromInt(5), Fee: 30})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestStore_ReservesRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p, err := s.CreatePool(ctx, &models.Pool{TokenA: "ETH", TokenB: "USDC", ReserveA: decimal.NewFromInt(1), ReserveB: decimal.NewFromInt(1), Fee: 30})
	require.NoError(t, err)

	rA := decimal.RequireFromString("101.000000000000000001")
	rB := decimal.RequireFromString("198025.683931206867530718")
	out, err := s.UpdatePoolReserves(ctx, p.ID, rA, rB)
	require.NoError(t, err)
	assert.True(t, out.ReserveA.Equal(rA))
	assert.True(t, out.ReserveB.Equal(rB))

	_, err = s.UpdatePoolReserves(ctx, "00000000-0000-0000-0000-000000000000", rA, rB)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_UpsertBalance(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertBalance(ctx, "0xabc", "ETH", "0x01")
	require.NoError(t, err)
	second, err := s.UpsertBalance(ctx, "0xabc", "ETH", "0x02")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := s.GetBalance(ctx, "0xabc", "ETH")
	require.NoError(t, err)
	assert.Equal(t, "0x02", got.EncryptedValue)

	none, err := s.GetBalance(ctx, "0xabc", "DAI")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStore_TransactionsAndOrders(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	hash := "0xaaa"
	older := time.Now().Add(-time.Hour).UTC()
	_, err := s.CreateTransaction(ctx, &models.Transaction{
		WalletAddress: "0xabc", Type: models.TransactionSwap, FromToken: "ETH", ToToken: "USDC",
		Amount: decimal.NewFromInt(1), Status: models.StatusCompleted, TxHash: &hash, Timestamp: older, Encrypted: true,
	})
	require.NoError(t, err)
	pending, err := s.CreateTransaction(ctx, &models.Transaction{
		WalletAddress: "0xabc", Type: models.TransactionSwap, FromToken: "ETH", ToToken: "DAI",
		Amount: decimal.NewFromInt(2), Status: models.StatusPending, Encrypted: true,
	})
	require.NoError(t, err)

	txs, err := s.ListTransactionsByWallet(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, pending.ID, txs[0].ID)

	done, err := s.UpdateTransactionStatus(ctx, pending.ID, models.StatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Nil(t, done.TxHash)

	order, err := s.CreateLimitOrder(ctx, &models.LimitOrder{
		WalletAddress: "0xabc", TokenIn: "ETH", TokenOut: "USDC",
		AmountIn: decimal.NewFromInt(1), LimitPrice: decimal.NewFromInt(4000),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderActive, order.Status)

	executed, err := s.UpdateLimitOrderStatus(ctx, order.ID, models.OrderExecuted)
	require.NoError(t, err)
	assert.NotNil(t, executed.ExecutedAt)
}
