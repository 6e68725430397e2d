package postgres

// schema is applied on every start; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pools (
		id              VARCHAR(36) PRIMARY KEY,
		token_a         VARCHAR(20) NOT NULL,
		token_b         VARCHAR(20) NOT NULL,
		reserve_a       NUMERIC(36, 18) NOT NULL,
		reserve_b       NUMERIC(36, 18) NOT NULL,
		fee             INTEGER NOT NULL DEFAULT 30,
		total_liquidity NUMERIC(36, 18) NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS pools_pair_idx
		ON pools (LEAST(token_a, token_b), GREATEST(token_a, token_b))`,

	`CREATE TABLE IF NOT EXISTS balances (
		id              VARCHAR(36) PRIMARY KEY,
		wallet_address  VARCHAR(64) NOT NULL,
		token           VARCHAR(20) NOT NULL,
		encrypted_value TEXT NOT NULL,
		last_updated    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS balances_wallet_token_idx
		ON balances (wallet_address, token)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id             VARCHAR(36) PRIMARY KEY,
		wallet_address VARCHAR(64) NOT NULL,
		type           VARCHAR(20) NOT NULL,
		from_token     VARCHAR(20) NOT NULL,
		to_token       VARCHAR(20) NOT NULL,
		amount         NUMERIC(36, 18) NOT NULL,
		status         VARCHAR(20) NOT NULL DEFAULT 'pending',
		tx_hash        VARCHAR(66),
		timestamp      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		encrypted      BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_wallet_idx ON transactions (wallet_address)`,
	`CREATE INDEX IF NOT EXISTS transactions_timestamp_idx ON transactions (timestamp)`,

	`CREATE TABLE IF NOT EXISTS limit_orders (
		id             VARCHAR(36) PRIMARY KEY,
		wallet_address VARCHAR(64) NOT NULL,
		token_in       VARCHAR(20) NOT NULL,
		token_out      VARCHAR(20) NOT NULL,
		amount_in      NUMERIC(36, 18) NOT NULL,
		limit_price    NUMERIC(36, 18) NOT NULL,
		status         VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		executed_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS limit_orders_wallet_idx ON limit_orders (wallet_address)`,
	`CREATE INDEX IF NOT EXISTS limit_orders_status_idx ON limit_orders (status)`,
}
