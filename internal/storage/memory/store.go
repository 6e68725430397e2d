package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ storage.Store = (*Store)(nil)

// Store is a volatile map-backed storage.Store. State is lost on restart.
type Store struct {
	mu sync.RWMutex

	pools     map[string]*models.Pool
	poolOrder []string
	balances  map[string]*models.Balance
	txs       []*models.Transaction
	orders    []*models.LimitOrder

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		pools:    make(map[string]*models.Pool),
		balances: make(map[string]*models.Balance),
		now:      time.Now,
	}
}

func balanceKey(wallet, token string) string {
	return wallet + "|" + token
}

func (s *Store) CreatePool(_ context.Context, pool *models.Pool) (*models.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pools {
		if p.Matches(pool.TokenA, pool.TokenB) {
			return nil, fmt.Errorf("pool %s: %w", pool.Pair(), storage.ErrConflict)
		}
	}

	p := pool.Clone()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.pools[p.ID] = p
	s.poolOrder = append(s.poolOrder, p.ID)
	return p.Clone(), nil
}

func (s *Store) GetPool(_ context.Context, tokenA, tokenB string) (*models.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.poolOrder {
		if p := s.pools[id]; p.Matches(tokenA, tokenB) {
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (s *Store) GetPoolByID(_ context.Context, id string) (*models.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.pools[id]; ok {
		return p.Clone(), nil
	}
	return nil, nil
}

func (s *Store) ListPools(_ context.Context) ([]*models.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Pool, 0, len(s.poolOrder))
	for _, id := range s.poolOrder {
		out = append(out, s.pools[id].Clone())
	}
	return out, nil
}

func (s *Store) UpdatePoolReserves(_ context.Context, id string, reserveA, reserveB decimal.Decimal) (*models.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[id]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", id, storage.ErrNotFound)
	}
	p.ReserveA = reserveA
	p.ReserveB = reserveB
	return p.Clone(), nil
}

func (s *Store) GetBalance(_ context.Context, wallet, token string) (*models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.balances[balanceKey(wallet, token)]; ok {
		c := *b
		return &c, nil
	}
	return nil, nil
}

func (s *Store) UpsertBalance(_ context.Context, wallet, token, encryptedValue string) (*models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey(wallet, token)
	b, ok := s.balances[key]
	if !ok {
		b = &models.Balance{
			ID:            uuid.NewString(),
			WalletAddress: wallet,
			Token:         token,
		}
		s.balances[key] = b
	}
	b.EncryptedValue = encryptedValue
	b.LastUpdated = s.now().UTC()

	c := *b
	return &c, nil
}

func (s *Store) ListBalances(_ context.Context, wallet string) ([]*models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Balance
	for _, b := range s.balances {
		if b.WalletAddress == wallet {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := cloneTx(tx)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now().UTC()
	}
	s.txs = append(s.txs, t)
	return cloneTx(t), nil
}

func (s *Store) ListTransactionsByWallet(_ context.Context, wallet string) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Transaction
	for i := len(s.txs) - 1; i >= 0; i-- {
		if s.txs[i].WalletAddress == wallet {
			out = append(out, cloneTx(s.txs[i]))
		}
	}
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Transaction, 0, len(s.txs))
	for i := len(s.txs) - 1; i >= 0; i-- {
		out = append(out, cloneTx(s.txs[i]))
	}
	return out, nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id string, status models.TransactionStatus, txHash *string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.txs {
		if t.ID != id {
			continue
		}
		t.Status = status
		if txHash != nil {
			h := *txHash
			t.TxHash = &h
		}
		return cloneTx(t), nil
	}
	return nil, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
}

func (s *Store) CreateLimitOrder(_ context.Context, order *models.LimitOrder) (*models.LimitOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := cloneOrder(order)
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now().UTC()
	}
	if o.Status == "" {
		o.Status = models.OrderActive
	}
	s.orders = append(s.orders, o)
	return cloneOrder(o), nil
}

func (s *Store) GetLimitOrder(_ context.Context, id string) (*models.LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

func (s *Store) ListLimitOrdersByWallet(_ context.Context, wallet string) ([]*models.LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.LimitOrder
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].WalletAddress == wallet {
			out = append(out, cloneOrder(s.orders[i]))
		}
	}
	return out, nil
}

func (s *Store) UpdateLimitOrderStatus(_ context.Context, id string, status models.OrderStatus) (*models.LimitOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID != id {
			continue
		}
		o.Status = status
		if status == models.OrderExecuted {
			at := s.now().UTC()
			o.ExecutedAt = &at
		}
		return cloneOrder(o), nil
	}
	return nil, fmt.Errorf("limit order %s: %w", id, storage.ErrNotFound)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func cloneTx(t *models.Transaction) *models.Transaction {
	c := *t
	if t.TxHash != nil {
		h := *t.TxHash
		c.TxHash = &h
	}
	return &c
}

func cloneOrder(o *models.LimitOrder) *models.LimitOrder {
	c := *o
	if o.ExecutedAt != nil {
		at := *o.ExecutedAt
		c.ExecutedAt = &at
	}
	return &c
}
