package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the TokenSale store.
var Migrations = migrate.NewGroup("tokensale")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tokensale_tokens",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokensale_tokens (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    symbol       TEXT NOT NULL DEFAULT '',
    decimals     INT NOT NULL DEFAULT 0,
    supply_units BIGINT NOT NULL DEFAULT 0,
    max_supply   NUMERIC(78, 0) NOT NULL DEFAULT 0,
    total_minted NUMERIC(78, 0) NOT NULL DEFAULT 0,
    owner        TEXT NOT NULL DEFAULT '',
    metadata     JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tokensale_tokens_owner ON tokensale_tokens (owner);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tokensale_tokens_symbol ON tokensale_tokens (symbol);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokensale_tokens`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokensale_balances",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokensale_balances (
    token_id TEXT NOT NULL,
    account  TEXT NOT NULL,
    balance  NUMERIC(78, 0) NOT NULL DEFAULT 0,
    PRIMARY KEY (token_id, account)
);

CREATE INDEX IF NOT EXISTS idx_tokensale_balances_account ON tokensale_balances (account);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokensale_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokensale_allowances",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokensale_allowances (
    token_id TEXT NOT NULL,
    owner    TEXT NOT NULL,
    spender  TEXT NOT NULL,
    amount   NUMERIC(78, 0) NOT NULL DEFAULT 0,
    PRIMARY KEY (token_id, owner, spender)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokensale_allowances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokensale_gates",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokensale_gates (
    id         TEXT PRIMARY KEY,
    validator  TEXT NOT NULL DEFAULT '',
    metadata   JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tokensale_approvals (
    gate_id  TEXT NOT NULL,
    account  TEXT NOT NULL,
    approved BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (gate_id, account)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS tokensale_approvals;
DROP TABLE IF EXISTS tokensale_gates;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokensale_sales",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokensale_sales (
    id           TEXT PRIMARY KEY,
    token_id     TEXT NOT NULL DEFAULT '',
    gate_id      TEXT,
    owner        TEXT NOT NULL DEFAULT '',
    token_source TEXT NOT NULL DEFAULT '',
    recipient    TEXT NOT NULL DEFAULT '',
    rate         NUMERIC(78, 0) NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT 'active',
    metadata     JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tokensale_sales_token ON tokensale_sales (token_id);
CREATE INDEX IF NOT EXISTS idx_tokensale_sales_status ON tokensale_sales (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokensale_sales`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokensale_events",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokensale_events (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL DEFAULT '',
    sale_id     TEXT,
    token_id    TEXT,
    gate_id     TEXT,
    account     TEXT,
    amount      NUMERIC(78, 0) NOT NULL DEFAULT 0,
    payment     NUMERIC(78, 0) NOT NULL DEFAULT 0,
    metadata    JSONB NOT NULL DEFAULT '{}',
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tokensale_events_sale ON tokensale_events (sale_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_tokensale_events_type ON tokensale_events (type, occurred_at);
CREATE INDEX IF NOT EXISTS idx_tokensale_events_occurred ON tokensale_events (occurred_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokensale_events`)
				return err
			},
		},
	)
}
