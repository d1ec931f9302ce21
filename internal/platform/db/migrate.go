package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is a single versioned schema change. Migrations run in version
// order, each inside its own transaction, and are recorded in
// schema_migrations so reruns are no-ops.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations is the ordered schema history. Append only; never edit an
// applied entry.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "core schema",
		SQL: `
CREATE TABLE IF NOT EXISTS business_owners (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	shop_name     TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS customers (
	id                BIGSERIAL PRIMARY KEY,
	business_owner_id BIGINT REFERENCES business_owners(id),
	name              TEXT NOT NULL,
	phone             TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS products (
	id                BIGSERIAL PRIMARY KEY,
	business_owner_id BIGINT REFERENCES business_owners(id),
	name              TEXT NOT NULL,
	category          TEXT NOT NULL DEFAULT '',
	price             NUMERIC(12,2) NOT NULL DEFAULT 0,
	cost              NUMERIC(12,2) NOT NULL DEFAULT 0,
	stock             NUMERIC(12,3) NOT NULL DEFAULT 0,
	min_stock         NUMERIC(12,3) NOT NULL DEFAULT 0,
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	last_stock_update TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bills (
	id                 BIGSERIAL PRIMARY KEY,
	bill_number        TEXT NOT NULL,
	business_owner_id  BIGINT REFERENCES business_owners(id),
	customer_id        BIGINT REFERENCES customers(id),
	subtotal           NUMERIC(12,2) NOT NULL DEFAULT 0,
	tax_amount         NUMERIC(12,2) NOT NULL DEFAULT 0,
	discount_amount    NUMERIC(12,2) NOT NULL DEFAULT 0,
	total_amount       NUMERIC(12,2) NOT NULL DEFAULT 0,
	payment_method     TEXT NOT NULL,
	payment_status     TEXT NOT NULL,
	is_credit          BOOLEAN NOT NULL DEFAULT FALSE,
	credit_amount      NUMERIC(12,2) NOT NULL DEFAULT 0,
	credit_paid_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	credit_balance     NUMERIC(12,2) NOT NULL DEFAULT 0,
	cheque_number      TEXT NOT NULL DEFAULT '',
	needs_review       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT bills_credit_balance_check CHECK (credit_balance >= 0),
	CONSTRAINT bills_number_per_owner UNIQUE (business_owner_id, bill_number)
);

CREATE TABLE IF NOT EXISTS bill_line_items (
	id           BIGSERIAL PRIMARY KEY,
	bill_id      BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
	product_id   BIGINT NOT NULL REFERENCES products(id),
	product_name TEXT NOT NULL,
	quantity     NUMERIC(12,3) NOT NULL,
	unit_price   NUMERIC(12,2) NOT NULL,
	total_price  NUMERIC(12,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS sales_ledger (
	id                BIGSERIAL PRIMARY KEY,
	bill_id           BIGINT NOT NULL,
	bill_number       TEXT NOT NULL,
	business_owner_id BIGINT REFERENCES business_owners(id),
	product_id        BIGINT NOT NULL,
	product_name      TEXT NOT NULL,
	category          TEXT NOT NULL DEFAULT '',
	quantity          NUMERIC(12,3) NOT NULL,
	unit_price        NUMERIC(12,2) NOT NULL,
	total_price       NUMERIC(12,2) NOT NULL,
	tax_amount        NUMERIC(12,2) NOT NULL DEFAULT 0,
	discount_amount   NUMERIC(12,2) NOT NULL DEFAULT 0,
	payment_method    TEXT NOT NULL,
	sale_date         DATE NOT NULL,
	sale_time         TIME NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payment_records (
	id                BIGSERIAL PRIMARY KEY,
	bill_id           BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
	business_owner_id BIGINT REFERENCES business_owners(id),
	amount            NUMERIC(12,2) NOT NULL,
	method            TEXT NOT NULL,
	processed_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bill_number_seq (
	business_owner_id BIGINT NOT NULL,
	day               DATE NOT NULL,
	last_seq          INT NOT NULL,
	PRIMARY KEY (business_owner_id, day)
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	key        TEXT PRIMARY KEY,
	module     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id          BIGSERIAL PRIMARY KEY,
	actor_id    BIGINT NOT NULL,
	action      TEXT NOT NULL,
	entity      TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	meta        JSONB,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
	{
		Version: 2,
		Name:    "assign legacy rows and harden tenant columns",
		SQL: `
UPDATE customers SET business_owner_id = (SELECT MIN(id) FROM business_owners) WHERE business_owner_id IS NULL;
UPDATE products SET business_owner_id = (SELECT MIN(id) FROM business_owners) WHERE business_owner_id IS NULL;
UPDATE bills SET business_owner_id = (SELECT MIN(id) FROM business_owners) WHERE business_owner_id IS NULL;
UPDATE sales_ledger SET business_owner_id = (SELECT MIN(id) FROM business_owners) WHERE business_owner_id IS NULL;
UPDATE payment_records SET business_owner_id = (SELECT MIN(id) FROM business_owners) WHERE business_owner_id IS NULL;

ALTER TABLE customers ALTER COLUMN business_owner_id SET NOT NULL;
ALTER TABLE products ALTER COLUMN business_owner_id SET NOT NULL;
ALTER TABLE bills ALTER COLUMN business_owner_id SET NOT NULL;
ALTER TABLE sales_ledger ALTER COLUMN business_owner_id SET NOT NULL;
ALTER TABLE payment_records ALTER COLUMN business_owner_id SET NOT NULL;
`,
	},
	{
		Version: 3,
		Name:    "reporting indexes",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_bills_owner_created ON bills (business_owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_bills_owner_status ON bills (business_owner_id, payment_status);
CREATE INDEX IF NOT EXISTS idx_payment_records_owner_processed ON payment_records (business_owner_id, processed_at);
CREATE INDEX IF NOT EXISTS idx_sales_ledger_bill ON sales_ledger (bill_id);
CREATE INDEX IF NOT EXISTS idx_sales_ledger_owner_date ON sales_ledger (business_owner_id, sale_date);
CREATE INDEX IF NOT EXISTS idx_products_owner_active ON products (business_owner_id, is_active);
`,
	},
}

// Migrate applies all pending migrations in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INT PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("platform/db: ensure schema_migrations: %w", err)
	}

	for _, m := range Migrations {
		applied, err := migrationApplied(ctx, pool, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		err = WithTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return fmt.Errorf("platform/db: migration %d (%s): %w", m.Version, m.Name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
				return fmt.Errorf("platform/db: record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("applied migration", slog.Int("version", m.Version), slog.String("name", m.Name))
		}
	}
	return nil
}

func migrationApplied(ctx context.Context, pool *pgxpool.Pool, version int) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("platform/db: check migration %d: %w", version, err)
	}
	return exists, nil
}
