package store

import "strings"

// schemaTemplate is shared by both dialects; {{SEQ}} is the auto-increment
// primary key type. Timestamps are fixed-width UTC TEXT (see timeLayout) and
// booleans are INTEGER 0/1 so row scanning is identical on both drivers.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS accounts (
    id                     TEXT PRIMARY KEY,
    user_id                TEXT NOT NULL,
    name                   TEXT NOT NULL DEFAULT '',
    balance_cents          BIGINT NOT NULL DEFAULT 0,
    updated_at             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id                     TEXT PRIMARY KEY,
    user_id                TEXT NOT NULL,
    account_id             TEXT,
    posted_at              TEXT NOT NULL,
    amount_cents           BIGINT NOT NULL,
    description            TEXT,
    category               TEXT
);

CREATE TABLE IF NOT EXISTS debts (
    id                     TEXT PRIMARY KEY,
    user_id                TEXT NOT NULL,
    name                   TEXT NOT NULL DEFAULT '',
    balance_cents          BIGINT NOT NULL,
    apr_percent            TEXT NOT NULL,
    minimum_payment_cents  BIGINT,
    extra_payment_cents    BIGINT NOT NULL DEFAULT 0,
    active                 INTEGER NOT NULL DEFAULT 1,
    payoff_date            TEXT,
    months_to_payoff       INTEGER,
    total_interest_cents   BIGINT,
    danger_score           INTEGER,
    negative_amortization  INTEGER,
    projected_at           TEXT
);

CREATE TABLE IF NOT EXISTS scheduled_items (
    id                     TEXT PRIMARY KEY,
    user_id                TEXT NOT NULL,
    kind                   TEXT NOT NULL,
    name                   TEXT NOT NULL DEFAULT '',
    amount_cents           BIGINT NOT NULL,
    due_at                 TEXT NOT NULL,
    active                 INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS goals (
    id                         TEXT PRIMARY KEY,
    user_id                    TEXT NOT NULL,
    name                       TEXT NOT NULL,
    target_cents               BIGINT NOT NULL,
    current_cents              BIGINT NOT NULL DEFAULT 0,
    start_date                 TEXT NOT NULL,
    target_date                TEXT,
    status                     TEXT NOT NULL,
    progress_percent           REAL NOT NULL DEFAULT 0,
    expected_percent           REAL NOT NULL DEFAULT 0,
    on_track                   INTEGER NOT NULL DEFAULT 1,
    projected_completion       TEXT,
    recommended_monthly_cents  BIGINT NOT NULL DEFAULT 0,
    progress_at                TEXT
);

CREATE TABLE IF NOT EXISTS decisions (
    seq                    {{SEQ}},
    id                     TEXT NOT NULL UNIQUE,
    user_id                TEXT NOT NULL,
    risk_level             TEXT NOT NULL,
    command_json           TEXT NOT NULL,
    warnings_json          TEXT NOT NULL,
    next_action_json       TEXT NOT NULL,
    basis_json             TEXT NOT NULL,
    computed_at            TEXT NOT NULL,
    expires_at             TEXT NOT NULL,
    is_locked              INTEGER NOT NULL DEFAULT 1,
    acknowledged_at        TEXT
);

CREATE TABLE IF NOT EXISTS runway_snapshots (
    seq                    {{SEQ}},
    decision_id            TEXT NOT NULL REFERENCES decisions(id),
    user_id                TEXT NOT NULL,
    computed_at            TEXT NOT NULL,
    daily_burn_cents       BIGINT NOT NULL,
    weekly_burn_cents      BIGINT NOT NULL,
    days_until_zero        INTEGER,
    zero_date              TEXT,
    safe_today_cents       BIGINT NOT NULL,
    safe_week_cents        BIGINT NOT NULL,
    upcoming_bills_cents   BIGINT NOT NULL,
    upcoming_bills_count   INTEGER NOT NULL,
    next_income_date       TEXT,
    observed_days          INTEGER NOT NULL,
    low_confidence         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS import_batches (
    id                     TEXT NOT NULL,
    user_id                TEXT NOT NULL,
    applied_at             TEXT NOT NULL,
    PRIMARY KEY (id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_posted ON transactions(user_id, posted_at);
CREATE INDEX IF NOT EXISTS idx_debts_user ON debts(user_id);
CREATE INDEX IF NOT EXISTS idx_scheduled_user_due ON scheduled_items(user_id, due_at);
CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);
CREATE INDEX IF NOT EXISTS idx_decisions_user_latest ON decisions(user_id, computed_at, seq);
CREATE INDEX IF NOT EXISTS idx_runway_user ON runway_snapshots(user_id, seq);
`

func schemaFor(d dialect) string {
	seq := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == dialectPostgres {
		seq = "BIGSERIAL PRIMARY KEY"
	}
	return strings.ReplaceAll(schemaTemplate, "{{SEQ}}", seq)
}
