package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var _ storage.Store = (*Store)(nil)

const uniqueViolation = "23505"

// Numeric columns are read back as text so decimals round-trip exactly.
const (
	poolColumns    = `id, token_a, token_b, reserve_a::text, reserve_b::text, fee, total_liquidity::text, created_at`
	balanceColumns = `id, wallet_address, token, encrypted_value, last_updated`
	txColumns      = `id, wallet_address, type, from_token, to_token, amount::text, status, tx_hash, timestamp, encrypted`
	orderColumns   = `id, wallet_address, token_in, token_out, amount_in::text, limit_price::text, status, created_at, executed_at`
)

// Store is a storage.Store on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreatePool(ctx context.Context, p *models.Pool) (*models.Pool, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `INSERT INTO pools (id, token_a, token_b, reserve_a, reserve_b, fee, total_liquidity)
			  VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7::numeric)
			  RETURNING ` + poolColumns

	out, err := scanPool(s.pool.QueryRow(ctx, query,
		id, p.TokenA, p.TokenB, p.ReserveA.String(), p.ReserveB.String(), p.Fee, p.TotalLiquidity.String()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("pool %s: %w", p.Pair(), storage.ErrConflict)
		}
		return nil, fmt.Errorf("error creating pool %s: %w", p.Pair(), err)
	}
	return out, nil
}

func (s *Store) GetPool(ctx context.Context, tokenA, tokenB string) (*models.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools
			  WHERE (token_a = $1 AND token_b = $2) OR (token_a = $2 AND token_b = $1)
			  LIMIT 1`
	p, err := scanPool(s.pool.QueryRow(ctx, query, tokenA, tokenB))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting pool %s/%s: %w", tokenA, tokenB, err)
	}
	return p, nil
}

func (s *Store) GetPoolByID(ctx context.Context, id string) (*models.Pool, error) {
	p, err := scanPool(s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting pool %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListPools(ctx context.Context) ([]*models.Pool, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+poolColumns+` FROM pools ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("error querying pools: %w", err)
	}
	defer rows.Close()

	pools := make([]*models.Pool, 0)
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning pool row: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

func (s *Store) UpdatePoolReserves(ctx context.Context, id string, reserveA, reserveB decimal.Decimal) (*models.Pool, error) {
	query := `UPDATE pools SET reserve_a = $2::numeric, reserve_b = $3::numeric
			  WHERE id = $1 RETURNING ` + poolColumns
	p, err := scanPool(s.pool.QueryRow(ctx, query, id, reserveA.String(), reserveB.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pool %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("error updating reserves for pool %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) GetBalance(ctx context.Context, wallet, token string) (*models.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE wallet_address = $1 AND token = $2`
	b, err := scanBalance(s.pool.QueryRow(ctx, query, wallet, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting balance for wallet %s token %s: %w", wallet, token, err)
	}
	return b, nil
}

func (s *Store) UpsertBalance(ctx context.Context, wallet, token, encryptedValue string) (*models.Balance, error) {
	query := `INSERT INTO balances (id, wallet_address, token, encrypted_value)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (wallet_address, token)
			  DO UPDATE SET encrypted_value = EXCLUDED.encrypted_value, last_updated = NOW()
			  RETURNING ` + balanceColumns
	b, err := scanBalance(s.pool.QueryRow(ctx, query, uuid.NewString(), wallet, token, encryptedValue))
	if err != nil {
		return nil, fmt.Errorf("error upserting balance for wallet %s token %s: %w", wallet, token, err)
	}
	return b, nil
}

func (s *Store) ListBalances(ctx context.Context, wallet string) ([]*models.Balance, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+balanceColumns+` FROM balances WHERE wallet_address = $1 ORDER BY token`, wallet)
	if err != nil {
		return nil, fmt.Errorf("error querying balances for wallet %s: %w", wallet, err)
	}
	defer rows.Close()

	balances := make([]*models.Balance, 0)
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning balance row: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	id := tx.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `INSERT INTO transactions (id, wallet_address, type, from_token, to_token, amount, status, tx_hash, timestamp, encrypted)
			  VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, COALESCE($9, NOW()), $10)
			  RETURNING ` + txColumns

	var ts any
	if !tx.Timestamp.IsZero() {
		ts = tx.Timestamp
	}
	out, err := scanTransaction(s.pool.QueryRow(ctx, query,
		id, tx.WalletAddress, string(tx.Type), tx.FromToken, tx.ToToken, tx.Amount.String(),
		string(tx.Status), tx.TxHash, ts, tx.Encrypted))
	if err != nil {
		return nil, fmt.Errorf("error creating transaction: %w", err)
	}
	return out, nil
}

func (s *Store) ListTransactionsByWallet(ctx context.Context, wallet string) ([]*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE wallet_address = $1 ORDER BY timestamp DESC`
	return s.queryTransactions(ctx, query, wallet)
}

func (s *Store) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.queryTransactions(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY timestamp DESC`)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus, txHash *string) (*models.Transaction, error) {
	query := `UPDATE transactions SET status = $2, tx_hash = COALESCE($3, tx_hash)
			  WHERE id = $1 RETURNING ` + txColumns
	t, err := scanTransaction(s.pool.QueryRow(ctx, query, id, string(status), txHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("error updating transaction %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) CreateLimitOrder(ctx context.Context, o *models.LimitOrder) (*models.LimitOrder, error) {
	id := o.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := o.Status
	if status == "" {
		status = models.OrderActive
	}
	query := `INSERT INTO limit_orders (id, wallet_address, token_in, token_out, amount_in, limit_price, status)
			  VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
			  RETURNING ` + orderColumns
	out, err := scanOrder(s.pool.QueryRow(ctx, query,
		id, o.WalletAddress, o.TokenIn, o.TokenOut, o.AmountIn.String(), o.LimitPrice.String(), string(status)))
	if err != nil {
		return nil, fmt.Errorf("error creating limit order: %w", err)
	}
	return out, nil
}

func (s *Store) GetLimitOrder(ctx context.Context, id string) (*models.LimitOrder, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM limit_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting limit order %s: %w", id, err)
	}
	return o, nil
}

func (s *Store) ListLimitOrdersByWallet(ctx context.Context, wallet string) ([]*models.LimitOrder, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM limit_orders WHERE wallet_address = $1 ORDER BY created_at DESC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("error querying limit orders for wallet %s: %w", wallet, err)
	}
	defer rows.Close()

	orders := make([]*models.LimitOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning limit order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) UpdateLimitOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.LimitOrder, error) {
	query := `UPDATE limit_orders
			  SET status = $2::varchar,
			      executed_at = CASE WHEN $2::varchar = 'executed' THEN NOW() ELSE executed_at END
			  WHERE id = $1 RETURNING ` + orderColumns
	o, err := scanOrder(s.pool.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("limit order %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("error updating limit order %s: %w", id, err)
	}
	return o, nil
}

func scanPool(row pgx.Row) (*models.Pool, error) {
	var (
		p                  models.Pool
		resA, resB, liquid string
	)
	if err := row.Scan(&p.ID, &p.TokenA, &p.TokenB, &resA, &resB, &p.Fee, &liquid, &p.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.ReserveA, err = decimal.NewFromString(resA); err != nil {
		return nil, err
	}
	if p.ReserveB, err = decimal.NewFromString(resB); err != nil {
		return nil, err
	}
	if p.TotalLiquidity, err = decimal.NewFromString(liquid); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanBalance(row pgx.Row) (*models.Balance, error) {
	var b models.Balance
	if err := row.Scan(&b.ID, &b.WalletAddress, &b.Token, &b.EncryptedValue, &b.LastUpdated); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		t              models.Transaction
		txType, status string
		amount         string
	)
	if err := row.Scan(&t.ID, &t.WalletAddress, &txType, &t.FromToken, &t.ToToken, &amount, &status, &t.TxHash, &t.Timestamp, &t.Encrypted); err != nil {
		return nil, err
	}
	t.Type = models.TransactionType(txType)
	t.Status = models.TransactionStatus(status)
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanOrder(row pgx.Row) (*models.LimitOrder, error) {
	var (
		o                 models.LimitOrder
		amountIn, limitPx string
		status            string
	)
	if err := row.Scan(&o.ID, &o.WalletAddress, &o.TokenIn, &o.TokenOut, &amountIn, &limitPx, &status, &o.CreatedAt, &o.ExecutedAt); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	var err error
	if o.AmountIn, err = decimal.NewFromString(amountIn); err != nil {
		return nil, err
	}
	if o.LimitPrice, err = decimal.NewFromString(limitPx); err != nil {
		return nil, err
	}
	return &o, nil
}
