package ai

import "fmt"

// transactionsSchema describes the ClickHouse archive the agent queries.
// It mirrors the table created by internal/cache/clickhouse.go.
const transactionsSchema = `
Database: %s
Table: transactions

Columns:
  - id             String    -- transaction id (uuid)
  - wallet_address String    -- wallet that submitted the operation
  - type           String    -- 'swap' or 'liquidity'
  - from_token     String    -- token sold (swap) or first pool token (liquidity), e.g. 'ETH'
  - to_token       String    -- token bought (swap) or second pool token (liquidity)
  - amount         Float64   -- amount of from_token
  - status         String    -- 'pending' (resting limit order), 'completed' or 'failed'
  - tx_hash        String    -- 0x-prefixed 32-byte hash
  - timestamp      DateTime64(3, 'UTC')
  - encrypted      UInt8     -- 1 when balances behind the operation are encrypted
  - version        UInt64    -- row version; a status change inserts a higher one

Notes:
  - Always read with FROM transactions FINAL so each id appears once with its latest status.
  - Tokens are upper-case symbols: ETH, USDC, DAI, WBTC.
  - Market swaps are type = 'swap' AND status = 'completed'; limit orders stay 'pending'.
  - Volume is SUM(amount) grouped by from_token; amounts in different tokens must not be added together.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`

func schemaFor(database string) string {
	return fmt.Sprintf(transactionsSchema, database)
}

// ExampleQuestions are starting points for exploring the archive.
var ExampleQuestions = []string{
	"What was the swap volume per token over the last 24 hours?",
	"Which five wallets made the most swaps this week?",
	"How many limit orders are still pending?",
	"Which pool pairs received liquidity today?",
	"What is the average ETH swap size by hour for the last day?",
	"How many swaps failed versus completed overall?",
}

// WalletQuestions are examples that make sense for a single wallet.
var WalletQuestions = []string{
	"What did this wallet swap in the last 7 days?",
	"How much ETH has this wallet sold in total?",
	"Does this wallet have pending limit orders?",
}
