package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently by Migrate.
const schema = `
CREATE TABLE IF NOT EXISTS apartments (
	id         BIGSERIAL PRIMARY KEY,
	scope_id   BIGINT NOT NULL,
	number     VARCHAR(20) NOT NULL,
	tower      VARCHAR(20) NOT NULL DEFAULT '',
	UNIQUE (scope_id, tower, number)
);

CREATE TABLE IF NOT EXISTS residents (
	id              BIGSERIAL PRIMARY KEY,
	scope_id        BIGINT NOT NULL,
	apartment_id    BIGINT NOT NULL REFERENCES apartments(id),
	name            VARCHAR(200) NOT NULL,
	document_number VARCHAR(40) NOT NULL,
	resident_type   VARCHAR(20) NOT NULL,
	active          BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS accounts (
	id                   BIGSERIAL PRIMARY KEY,
	scope_id             BIGINT NOT NULL,
	code                 VARCHAR(6) NOT NULL,
	name                 VARCHAR(200) NOT NULL,
	account_type         VARCHAR(20) NOT NULL,
	nature               VARCHAR(10) NOT NULL,
	parent_id            BIGINT REFERENCES accounts(id),
	level                SMALLINT NOT NULL,
	postable             BOOLEAN NOT NULL DEFAULT TRUE,
	active               BOOLEAN NOT NULL DEFAULT TRUE,
	requires_third_party BOOLEAN NOT NULL DEFAULT FALSE,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (scope_id, code)
);

CREATE TABLE IF NOT EXISTS accounting_periods (
	id        BIGSERIAL PRIMARY KEY,
	scope_id  BIGINT NOT NULL,
	year      INT NOT NULL,
	month     INT NOT NULL,
	status    VARCHAR(10) NOT NULL,
	closed_by BIGINT,
	closed_at TIMESTAMPTZ,
	UNIQUE (scope_id, year, month)
);

CREATE TABLE IF NOT EXISTS accounting_transactions (
	id             BIGSERIAL PRIMARY KEY,
	scope_id       BIGINT NOT NULL,
	number         VARCHAR(40) NOT NULL,
	transaction_date DATE NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	reference_type VARCHAR(30) NOT NULL,
	reference_id   BIGINT NOT NULL DEFAULT 0,
	total_debit    NUMERIC(16,2) NOT NULL DEFAULT 0,
	total_credit   NUMERIC(16,2) NOT NULL DEFAULT 0,
	status         VARCHAR(10) NOT NULL,
	created_by     BIGINT NOT NULL,
	posted_by      BIGINT,
	posted_at      TIMESTAMPTZ,
	cancelled_by   BIGINT,
	cancelled_at   TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (scope_id, number)
);
CREATE INDEX IF NOT EXISTS idx_transactions_reference ON accounting_transactions (scope_id, reference_type, reference_id);

CREATE TABLE IF NOT EXISTS accounting_entries (
	id               BIGSERIAL PRIMARY KEY,
	transaction_id   BIGINT NOT NULL REFERENCES accounting_transactions(id),
	account_id       BIGINT NOT NULL REFERENCES accounts(id),
	description      TEXT NOT NULL DEFAULT '',
	debit_amount     NUMERIC(16,2) NOT NULL DEFAULT 0,
	credit_amount    NUMERIC(16,2) NOT NULL DEFAULT 0,
	third_party_type VARCHAR(20),
	third_party_id   BIGINT,
	cost_center_id   BIGINT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK ((debit_amount > 0 AND credit_amount = 0) OR (credit_amount > 0 AND debit_amount = 0))
);
CREATE INDEX IF NOT EXISTS idx_entries_account ON accounting_entries (account_id);

CREATE TABLE IF NOT EXISTS concept_account_mappings (
	scope_id              BIGINT NOT NULL,
	concept_id            BIGINT NOT NULL,
	income_account_id     BIGINT NOT NULL REFERENCES accounts(id),
	receivable_account_id BIGINT NOT NULL REFERENCES accounts(id),
	PRIMARY KEY (scope_id, concept_id)
);

CREATE TABLE IF NOT EXISTS payment_method_accounts (
	scope_id       BIGINT NOT NULL,
	payment_method VARCHAR(20) NOT NULL,
	account_id     BIGINT NOT NULL REFERENCES accounts(id),
	PRIMARY KEY (scope_id, payment_method)
);

CREATE TABLE IF NOT EXISTS invoices (
	id             BIGSERIAL PRIMARY KEY,
	scope_id       BIGINT NOT NULL,
	apartment_id   BIGINT NOT NULL REFERENCES apartments(id),
	number         VARCHAR(40) NOT NULL,
	billing_date   DATE NOT NULL,
	due_date       DATE NOT NULL,
	subtotal       NUMERIC(16,2) NOT NULL,
	early_discount NUMERIC(16,2) NOT NULL DEFAULT 0,
	late_fees      NUMERIC(16,2) NOT NULL DEFAULT 0,
	total          NUMERIC(16,2) NOT NULL,
	paid_amount    NUMERIC(16,2) NOT NULL DEFAULT 0,
	status         VARCHAR(20) NOT NULL,
	created_by     BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (scope_id, number)
);

CREATE TABLE IF NOT EXISTS invoice_items (
	id          BIGSERIAL PRIMARY KEY,
	invoice_id  BIGINT NOT NULL REFERENCES invoices(id),
	concept_id  BIGINT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	quantity    NUMERIC(12,4) NOT NULL,
	unit_price  NUMERIC(16,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id             BIGSERIAL PRIMARY KEY,
	scope_id       BIGINT NOT NULL,
	apartment_id   BIGINT NOT NULL REFERENCES apartments(id),
	number         VARCHAR(40) NOT NULL,
	total_amount   NUMERIC(16,2) NOT NULL,
	applied_amount NUMERIC(16,2) NOT NULL DEFAULT 0,
	payment_method VARCHAR(20) NOT NULL,
	payment_date   DATE NOT NULL,
	reference      VARCHAR(100) NOT NULL DEFAULT '',
	status         VARCHAR(20) NOT NULL,
	applied_by     BIGINT,
	applied_at     TIMESTAMPTZ,
	reversed_by    BIGINT,
	reversed_at    TIMESTAMPTZ,
	created_by     BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (scope_id, number),
	CHECK (applied_amount <= total_amount)
);

CREATE TABLE IF NOT EXISTS payment_applications (
	id             BIGSERIAL PRIMARY KEY,
	payment_id     BIGINT NOT NULL REFERENCES payments(id),
	invoice_id     BIGINT NOT NULL REFERENCES invoices(id),
	amount_applied NUMERIC(16,2) NOT NULL CHECK (amount_applied > 0),
	status         VARCHAR(10) NOT NULL,
	transaction_id BIGINT REFERENCES accounting_transactions(id),
	applied_by     BIGINT NOT NULL,
	applied_at     TIMESTAMPTZ NOT NULL,
	reversed_by    BIGINT,
	reversed_at    TIMESTAMPTZ,
	UNIQUE (payment_id, invoice_id)
);

CREATE TABLE IF NOT EXISTS expenses (
	id             BIGSERIAL PRIMARY KEY,
	scope_id       BIGINT NOT NULL,
	number         VARCHAR(40) NOT NULL,
	supplier_id    BIGINT,
	account_id     BIGINT NOT NULL REFERENCES accounts(id),
	amount         NUMERIC(16,2) NOT NULL,
	payment_method VARCHAR(20) NOT NULL,
	expense_date   DATE NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	status         VARCHAR(20) NOT NULL,
	transaction_id BIGINT REFERENCES accounting_transactions(id),
	approved_by    BIGINT,
	approved_at    TIMESTAMPTZ,
	created_by     BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (scope_id, number)
);

CREATE TABLE IF NOT EXISTS budgets (
	id          BIGSERIAL PRIMARY KEY,
	scope_id    BIGINT NOT NULL,
	fiscal_year INT NOT NULL,
	name        VARCHAR(200) NOT NULL,
	status      VARCHAR(10) NOT NULL,
	approved_by BIGINT,
	approved_at TIMESTAMPTZ,
	created_by  BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS budget_items (
	id             BIGSERIAL PRIMARY KEY,
	budget_id      BIGINT NOT NULL REFERENCES budgets(id),
	account_id     BIGINT NOT NULL REFERENCES accounts(id),
	category       VARCHAR(10) NOT NULL,
	annual_amount  NUMERIC(16,2) NOT NULL,
	monthly        NUMERIC(16,2)[] NOT NULL,
	notes          TEXT NOT NULL DEFAULT '',
	UNIQUE (budget_id, account_id)
);

CREATE TABLE IF NOT EXISTS budget_executions (
	id                  BIGSERIAL PRIMARY KEY,
	budget_item_id      BIGINT NOT NULL REFERENCES budget_items(id),
	month               INT NOT NULL,
	year                INT NOT NULL,
	budgeted_amount     NUMERIC(16,2) NOT NULL,
	actual_amount       NUMERIC(16,2) NOT NULL DEFAULT 0,
	variance_amount     NUMERIC(16,2) NOT NULL DEFAULT 0,
	variance_percentage NUMERIC(10,2) NOT NULL DEFAULT 0,
	calculated_at       TIMESTAMPTZ,
	UNIQUE (budget_item_id, month, year)
);

CREATE TABLE IF NOT EXISTS payment_import_rows (
	id                    BIGSERIAL PRIMARY KEY,
	scope_id              BIGINT NOT NULL,
	batch_id              UUID NOT NULL,
	payment_type          VARCHAR(50) NOT NULL DEFAULT '',
	reference_number      VARCHAR(100) NOT NULL DEFAULT '',
	transaction_at        TIMESTAMPTZ NOT NULL,
	amount                NUMERIC(16,2) NOT NULL,
	approval_number       VARCHAR(100) NOT NULL DEFAULT '',
	originator_tax_id     VARCHAR(40) NOT NULL DEFAULT '',
	detail                TEXT NOT NULL DEFAULT '',
	reconciliation_status VARCHAR(20) NOT NULL,
	apartment_id          BIGINT REFERENCES apartments(id),
	payment_id            BIGINT REFERENCES payments(id),
	match_type            VARCHAR(30) NOT NULL DEFAULT '',
	match_notes           TEXT NOT NULL DEFAULT '',
	processed_by          BIGINT,
	processed_at          TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_import_rows_batch ON payment_import_rows (batch_id);

CREATE TABLE IF NOT EXISTS document_sequences (
	scope_id   BIGINT NOT NULL,
	key        VARCHAR(60) NOT NULL,
	last_value INT NOT NULL DEFAULT 0,
	PRIMARY KEY (scope_id, key)
);
`

// Migrate creates the ledger schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
