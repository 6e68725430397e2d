package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/sirupsen/logrus"
)

var _ storage.TransactionSink = (*ClickHouseStore)(nil)

// transactionsDDL must stay in sync with the schema described to the
// analytics agent in internal/ai/schema.go.
const transactionsDDL = `
	CREATE TABLE IF NOT EXISTS transactions (
		id             String,
		wallet_address String,
		type           LowCardinality(String),
		from_token     LowCardinality(String),
		to_token       LowCardinality(String),
		amount         Float64,
		status         LowCardinality(String),
		tx_hash        String,
		timestamp      DateTime64(3, 'UTC'),
		encrypted      UInt8,
		version        UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY id
`

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore archives every transaction for analytics queries. A
// status change inserts a newer version of the row; reads use FINAL.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, transactionsDDL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create transactions table: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, wallet_address, type, from_token, to_token,
			amount, status, tx_hash, timestamp, encrypted, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var hash string
	if tx.TxHash != nil {
		hash = *tx.TxHash
	}
	var encrypted uint8
	if tx.Encrypted {
		encrypted = 1
	}

	err := c.conn.Exec(ctx, query,
		tx.ID,
		tx.WalletAddress,
		string(tx.Type),
		tx.FromToken,
		tx.ToToken,
		tx.Amount.InexactFloat64(),
		string(tx.Status),
		hash,
		tx.Timestamp,
		encrypted,
		uint64(time.Now().UnixNano()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
