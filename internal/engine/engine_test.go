package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/confidential"
	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/aman-zulfiqar/confidential-dex/internal/oracle"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0xabc0000000000000000000000000000000000001"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingSink struct {
	mu  sync.Mutex
	txs []*models.Transaction
	err error
}

func (s *recordingSink) RecordTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return s.err
}

type fixture struct {
	engine *Engine
	store  *memory.Store
	vault  *confidential.Service
	sink   *recordingSink
}

func setupEngine(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	_, err := storage.Seed(context.Background(), store)
	require.NoError(t, err)

	vault, err := confidential.New("test-secret")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sink := &recordingSink{}
	e, err := New(Config{
		Store:  store,
		Vault:  vault,
		Prices: oracle.New(oracle.Config{Logger: logger}),
		Sinks:  []storage.TransactionSink{sink},
		Logger: logger,
	})
	require.NoError(t, err)
	e.seedAmount = func() decimal.Decimal { return d("50") }

	return &fixture{engine: e, store: store, vault: vault, sink: sink}
}

func (f *fixture) balance(t *testing.T, token string) decimal.Decimal {
	t.Helper()
	b, err := f.store.GetBalance(context.Background(), wallet, token)
	require.NoError(t, err)
	require.NotNil(t, b)
	v, err := f.vault.Decrypt(b.EncryptedValue)
	require.NoError(t, err)
	return v
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestSwap_SeededPool(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	res, err := f.engine.Swap(ctx, SwapRequest{
		WalletAddress: wallet,
		TokenIn:       "ETH",
		TokenOut:      "USDC",
		AmountIn:      d("1"),
	})
	require.NoError(t, err)

	assert.Equal(t, "1974.316069", res.AmountOut.StringFixed(6))
	assert.True(t, res.Pool.ReserveA.Equal(d("101")))
	assert.Equal(t, "198025.683931", res.Pool.ReserveB.StringFixed(6))

	require.NotNil(t, res.Transaction)
	assert.Equal(t, models.TransactionSwap, res.Transaction.Type)
	assert.Equal(t, models.StatusCompleted, res.Transaction.Status)
	require.NotNil(t, res.Transaction.TxHash)
	assert.Equal(t, res.TxHash, *res.Transaction.TxHash)
	assert.Len(t, res.TxHash, 66)

	// no prior balance: input floors at zero, output credited
	assert.True(t, f.balance(t, "ETH").IsZero())
	assert.Equal(t, "1974.316069", f.balance(t, "USDC").StringFixed(6))

	require.Len(t, f.sink.txs, 1)
	assert.Equal(t, res.Transaction.ID, f.sink.txs[0].ID)
}

func TestSwap_ReverseDirectionUsesSamePool(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	res, err := f.engine.Swap(ctx, SwapRequest{
		WalletAddress: wallet,
		TokenIn:       "usdc",
		TokenOut:      "eth",
		AmountIn:      d("2000"),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.987158", res.AmountOut.StringFixed(6))
	assert.Equal(t, "ETH/USDC", res.Pool.Pair())
	assert.True(t, res.Pool.ReserveB.Equal(d("202000")))
	assert.Equal(t, "99.012842", res.Pool.ReserveA.StringFixed(6))

	pools, err := f.engine.Pools(ctx)
	require.NoError(t, err)
	assert.Len(t, pools, 3)
}

func TestSwap_DebitsExistingBalance(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	_, err := f.engine.Balance(ctx, wallet, "ETH")
	require.NoError(t, err)

	_, err = f.engine.Swap(ctx, SwapRequest{WalletAddress: wallet, TokenIn: "ETH", TokenOut: "DAI", AmountIn: d("2.5")})
	require.NoError(t, err)

	assert.True(t, f.balance(t, "ETH").Equal(d("47.5")))
}

func TestSwap_Errors(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     SwapRequest
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing wallet",
			req:     SwapRequest{TokenIn: "ETH", TokenOut: "USDC", AmountIn: d("1")},
			wantMsg: "Missing required fields",
		},
		{
			name:    "zero amount",
			req:     SwapRequest{WalletAddress: wallet, TokenIn: "ETH", TokenOut: "USDC"},
			wantMsg: "Missing required fields",
		},
		{
			name:    "negative amount",
			req:     SwapRequest{WalletAddress: wallet, TokenIn: "ETH", TokenOut: "USDC", AmountIn: d("-1")},
			wantMsg: "amountIn must be positive",
		},
		{
			name:    "same token",
			req:     SwapRequest{WalletAddress: wallet, TokenIn: "ETH", TokenOut: "eth", AmountIn: d("1")},
			wantMsg: "tokenIn and tokenOut must differ",
		},
		{
			name:    "unknown pair",
			req:     SwapRequest{WalletAddress: wallet, TokenIn: "ETH", TokenOut: "WBTC", AmountIn: d("1")},
			wantErr: ErrPoolNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Swap(ctx, tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantMsg, verr.Message)
		})
	}
}

func TestSwap_SlippageLeavesStateUntouched(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	minOut := d("2000")
	_, err := f.engine.Swap(ctx, SwapRequest{
		WalletAddress: wallet,
		TokenIn:       "ETH",
		TokenOut:      "USDC",
		AmountIn:      d("1"),
		MinAmountOut:  &minOut,
	})
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	pool, err := f.store.GetPool(ctx, "ETH", "USDC")
	require.NoError(t, err)
	assert.True(t, pool.ReserveA.Equal(d("100")))
	assert.True(t, pool.ReserveB.Equal(d("200000")))

	txs, err := f.store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Empty(t, f.sink.txs)
}

func TestSwap_SinkFailureIsNotFatal(t *testing.T) {
	f := setupEngine(t)
	f.sink.err = fmt.Errorf("redis down")

	_, err := f.engine.Swap(context.Background(), SwapRequest{WalletAddress: wallet, TokenIn: "ETH", TokenOut: "USDC", AmountIn: d("1")})
	require.NoError(t, err)
	assert.Len(t, f.sink.txs, 1)
}

func TestSwap_ConcurrentSwapsDoNotLoseUpdates(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.Swap(ctx, SwapRequest{
				WalletAddress: fmt.Sprintf("0xwallet%02d", i%5),
				TokenIn:       "ETH",
				TokenOut:      "USDC",
				AmountIn:      d("1"),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	pool, err := f.store.GetPool(ctx, "ETH", "USDC")
	require.NoError(t, err)
	assert.True(t, pool.ReserveA.Equal(d("125")), "reserveA = %s", pool.ReserveA)

	txs, err := f.store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, n)
	assert.Equal(t, 0, f.engine.locks.size())
}

func TestPlaceLimitSwap(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	res, err := f.engine.PlaceLimitSwap(ctx, LimitOrderRequest{
		WalletAddress: wallet,
		TokenIn:       "eth",
		TokenOut:      "usdc",
		AmountIn:      d("1"),
		LimitPrice:    d("4000"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderActive, res.Order.Status)
	assert.Equal(t, "ETH", res.Order.TokenIn)
	assert.Equal(t, models.StatusPending, res.Transaction.Status)
	assert.Equal(t, res.TxHash, *res.Transaction.TxHash)

	pool, err := f.store.GetPool(ctx, "ETH", "USDC")
	require.NoError(t, err)
	assert.True(t, pool.ReserveA.Equal(d("100")))

	balances, err := f.store.ListBalances(ctx, wallet)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestCreateLimitOrder_Validation(t *testing.T) {
	f := setupEngine(t)

	_, err := f.engine.CreateLimitOrder(context.Background(), LimitOrderRequest{
		WalletAddress: wallet,
		TokenIn:       "ETH",
		TokenOut:      "USDC",
		AmountIn:      d("1"),
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Limit price required for limit orders", verr.Message)
}

func TestCancelLimitOrder(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	order, err := f.engine.CreateLimitOrder(ctx, LimitOrderRequest{
		WalletAddress: wallet,
		TokenIn:       "ETH",
		TokenOut:      "USDC",
		AmountIn:      d("1"),
		LimitPrice:    d("4000"),
	})
	require.NoError(t, err)

	_, err = f.engine.CancelLimitOrder(ctx, "0xsomeoneelse", order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	cancelled, err := f.engine.CancelLimitOrder(ctx, wallet, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	_, err = f.engine.CancelLimitOrder(ctx, wallet, order.ID)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	orders, err := f.engine.LimitOrders(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderCancelled, orders[0].Status)
}

func TestCreatePool(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	_, err := f.engine.Balance(ctx, wallet, "LINK")
	require.NoError(t, err)

	res, err := f.engine.CreatePool(ctx, LiquidityRequest{
		WalletAddress: wallet,
		TokenA:        "link",
		TokenB:        "uni",
		AmountA:       d("10"),
		AmountB:       d("20000"),
	})
	require.NoError(t, err)

	assert.Equal(t, "LINK/UNI", res.Pool.Pair())
	assert.Equal(t, 30, res.Pool.Fee)
	assert.Equal(t, "447.2136", res.Pool.TotalLiquidity.StringFixed(4))
	assert.Equal(t, models.TransactionLiquidity, res.Transaction.Type)
	assert.True(t, res.Transaction.Amount.Equal(d("10")))

	assert.True(t, f.balance(t, "LINK").Equal(d("40")))
	assert.True(t, f.balance(t, "UNI").IsZero())

	pools, err := f.engine.Pools(ctx)
	require.NoError(t, err)
	assert.Len(t, pools, 4)
}

func TestCreatePool_ExistingPairInEitherOrder(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	_, err := f.engine.CreatePool(ctx, LiquidityRequest{
		WalletAddress: wallet,
		TokenA:        "USDC",
		TokenB:        "ETH",
		AmountA:       d("1000"),
		AmountB:       d("1"),
		Fee:           5,
	})
	assert.ErrorIs(t, err, ErrPoolExists)

	pool, err := f.store.GetPool(ctx, "ETH", "USDC")
	require.NoError(t, err)
	assert.True(t, pool.ReserveA.Equal(d("100")))
	assert.Equal(t, 30, pool.Fee)

	txs, err := f.store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
	balances, err := f.store.ListBalances(ctx, wallet)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestCreatePool_RejectsBadFee(t *testing.T) {
	f := setupEngine(t)

	_, err := f.engine.CreatePool(context.Background(), LiquidityRequest{
		WalletAddress: wallet,
		TokenA:        "LINK",
		TokenB:        "UNI",
		AmountA:       d("1"),
		AmountB:       d("1"),
		Fee:           10000,
	})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestAddLiquidity(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	res, err := f.engine.AddLiquidity(ctx, LiquidityRequest{
		WalletAddress: wallet,
		TokenA:        "USDC",
		TokenB:        "ETH",
		AmountA:       d("3000"),
		AmountB:       d("1"),
	})
	require.NoError(t, err)

	assert.True(t, res.Pool.ReserveA.Equal(d("101")))
	assert.True(t, res.Pool.ReserveB.Equal(d("203000")))
	assert.Equal(t, models.TransactionLiquidity, res.Transaction.Type)
	assert.Equal(t, "USDC", res.Transaction.FromToken)

	_, err = f.engine.AddLiquidity(ctx, LiquidityRequest{
		WalletAddress: wallet,
		TokenA:        "ETH",
		TokenB:        "WBTC",
		AmountA:       d("1"),
		AmountB:       d("1"),
	})
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestBalance_SeedsOnce(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	first, err := f.engine.Balance(ctx, wallet, "eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", first.Token)

	f.engine.seedAmount = func() decimal.Decimal { return d("99") }
	second, err := f.engine.Balance(ctx, wallet, "ETH")
	require.NoError(t, err)
	assert.Equal(t, first.EncryptedValue, second.EncryptedValue)
	assert.True(t, f.balance(t, "ETH").Equal(d("50")))

	_, err = f.engine.Balance(ctx, "", "ETH")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Wallet address required", verr.Message)
}

func TestRandomSeedAmount_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		v := randomSeedAmount()
		assert.True(t, v.GreaterThanOrEqual(d("10")), v.String())
		assert.True(t, v.LessThanOrEqual(d("110")), v.String())
	}
}

func TestTransactions_RequiresWallet(t *testing.T) {
	f := setupEngine(t)

	_, err := f.engine.Transactions(context.Background(), "")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSetTransactionStatus(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	res, err := f.engine.PlaceLimitSwap(ctx, LimitOrderRequest{
		WalletAddress: wallet,
		TokenIn:       "ETH",
		TokenOut:      "USDC",
		AmountIn:      d("1"),
		LimitPrice:    d("4000"),
	})
	require.NoError(t, err)

	_, err = f.engine.SetTransactionStatus(ctx, "0xother", res.Transaction.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	var verr *ValidationError
	_, err = f.engine.SetTransactionStatus(ctx, wallet, res.Transaction.ID, models.StatusPending)
	assert.ErrorAs(t, err, &verr)

	tx, err := f.engine.SetTransactionStatus(ctx, wallet, res.Transaction.ID, models.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)

	txs, err := f.engine.Transactions(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.StatusFailed, txs[0].Status)

	// pending record plus the settled one
	require.Len(t, f.sink.txs, 2)
	assert.Equal(t, models.StatusFailed, f.sink.txs[1].Status)

	// settled transactions are final
	_, err = f.engine.SetTransactionStatus(ctx, wallet, res.Transaction.ID, models.StatusCompleted)
	assert.ErrorAs(t, err, &verr)
}

func TestSetTransactionStatus_CompletedSwapIsFinal(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	res, err := f.engine.Swap(ctx, SwapRequest{
		WalletAddress: wallet,
		TokenIn:       "ETH",
		TokenOut:      "USDC",
		AmountIn:      d("1"),
	})
	require.NoError(t, err)

	for _, status := range []models.TransactionStatus{models.StatusFailed, models.StatusPending} {
		_, err := f.engine.SetTransactionStatus(ctx, wallet, res.Transaction.ID, status)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "status %s", status)
	}

	txs, err := f.engine.Transactions(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.StatusCompleted, txs[0].Status)
	assert.Len(t, f.sink.txs, 1)
}

func TestSwap_UnencodableOutputLeavesStateUntouched(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	// a USDC side far beyond the vault's fixed-point range
	huge := d("1000000000000000000000000")
	_, err := f.engine.AddLiquidity(ctx, LiquidityRequest{
		WalletAddress: wallet,
		TokenA:        "ETH",
		TokenB:        "USDC",
		AmountA:       d("1"),
		AmountB:       huge,
	})
	require.NoError(t, err)

	before, err := f.store.GetPool(ctx, "ETH", "USDC")
	require.NoError(t, err)
	txsBefore, err := f.engine.Transactions(ctx, wallet)
	require.NoError(t, err)
	usdcBefore := f.balance(t, "USDC")

	_, err = f.engine.Swap(ctx, SwapRequest{
		WalletAddress: wallet,
		TokenIn:       "ETH",
		TokenOut:      "USDC",
		AmountIn:      d("100"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	after, err := f.store.GetPool(ctx, "ETH", "USDC")
	require.NoError(t, err)
	assert.True(t, before.ReserveA.Equal(after.ReserveA))
	assert.True(t, before.ReserveB.Equal(after.ReserveB))

	txsAfter, err := f.engine.Transactions(ctx, wallet)
	require.NoError(t, err)
	assert.Len(t, txsAfter, len(txsBefore))
	assert.True(t, usdcBefore.Equal(f.balance(t, "USDC")))
}

func TestCreatePool_UnencodableDebitCreatesNothing(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	_, err := f.engine.Balance(ctx, wallet, "DAI")
	require.NoError(t, err)

	failing := &encodeLimitVault{Service: f.vault, limit: d("1")}
	f.engine.vault = failing

	// the seeded DAI balance is above what the vault accepts
	_, err = f.engine.CreatePool(ctx, LiquidityRequest{
		WalletAddress: wallet,
		TokenA:        "UNI",
		TokenB:        "DAI",
		AmountA:       d("5"),
		AmountB:       d("5"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	pool, err := f.store.GetPool(ctx, "UNI", "DAI")
	require.NoError(t, err)
	assert.Nil(t, pool)
}

// encodeLimitVault refuses to encode values above limit.
type encodeLimitVault struct {
	*confidential.Service
	limit decimal.Decimal
}

func (v *encodeLimitVault) Encrypt(value decimal.Decimal) (string, error) {
	if value.GreaterThan(v.limit) {
		return "", errors.New("value out of range")
	}
	return v.Service.Encrypt(value)
}

func TestAnalytics(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	empty, err := f.engine.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, empty.ActivePools)
	assert.Zero(t, empty.TotalVolume24h)
	assert.Zero(t, empty.AvgTradeSize)
	assert.Zero(t, empty.TotalTransactions)
	assert.InDelta(t, 845000, empty.TotalLiquidity, 1e-6)

	_, err = f.engine.Swap(ctx, SwapRequest{WalletAddress: wallet, TokenIn: "ETH", TokenOut: "USDC", AmountIn: d("1")})
	require.NoError(t, err)
	_, err = f.engine.Swap(ctx, SwapRequest{WalletAddress: wallet, TokenIn: "DAI", TokenOut: "USDC", AmountIn: d("500")})
	require.NoError(t, err)
	_, err = f.engine.AddLiquidity(ctx, LiquidityRequest{WalletAddress: wallet, TokenA: "USDC", TokenB: "DAI", AmountA: d("1"), AmountB: d("1")})
	require.NoError(t, err)

	stats, err := f.engine.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTransactions)
	assert.Equal(t, 2, stats.Transactions24h)
	assert.InDelta(t, 4000, stats.TotalVolume24h, 1e-9)
	assert.InDelta(t, 2000, stats.AvgTradeSize, 1e-9)

	f.engine.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	later, err := f.engine.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, later.Transactions24h)
	assert.Zero(t, later.TotalVolume24h)
	assert.Equal(t, 3, later.TotalTransactions)
}

func TestPortfolio(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	_, err := f.engine.Balance(ctx, wallet, "USDC")
	require.NoError(t, err)
	_, err = f.engine.Balance(ctx, wallet, "ETH")
	require.NoError(t, err)

	p, err := f.engine.Portfolio(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, p.Holdings, 2)
	assert.Equal(t, "ETH", p.Holdings[0].Token)
	assert.InDelta(t, 175000, p.Holdings[0].ValueUSD, 1e-6)
	assert.InDelta(t, 175050, p.TotalUSD, 1e-6)
}

func TestQuote(t *testing.T) {
	f := setupEngine(t)

	q, err := f.engine.Quote(context.Background(), "ETH", "USDC", d("1"), 50)
	require.NoError(t, err)

	assert.Equal(t, "1974.316069", q.AmountOut.StringFixed(6))
	assert.True(t, q.MinAmountOut.LessThan(q.AmountOut))
	assert.Equal(t, "3489.5", q.OracleAmountOut.StringFixed(1))
	assert.InDelta(t, 0.990099, q.PriceImpact, 1e-4)
	assert.Equal(t, 30, q.Fee)

	pool, err := f.store.GetPool(context.Background(), "ETH", "USDC")
	require.NoError(t, err)
	assert.True(t, pool.ReserveA.Equal(d("100")))
}

func TestKeyedMutex_ReleasesKeys(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("b", "a", "a")
	assert.Equal(t, 2, k.size())
	unlock()
	assert.Equal(t, 0, k.size())

	assert.Equal(t, pairKey("USDC", "ETH"), pairKey("ETH", "USDC"))
}
