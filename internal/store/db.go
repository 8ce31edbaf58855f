package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// NewDB opens a Postgres connection pool and verifies it with a ping.
func NewDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates every table and index the application needs. It is safe
// to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    zip_code TEXT,
    congressional_district TEXT,
    zip_code_verified_at TIMESTAMPTZ,
    guidelines_accepted_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bills (
    id SERIAL PRIMARY KEY,
    congress_number INTEGER NOT NULL,
    chamber TEXT NOT NULL CHECK (chamber IN ('house', 'senate', 'joint')),
    bill_type TEXT NOT NULL,
    bill_number INTEGER NOT NULL,
    title TEXT NOT NULL,
    short_title TEXT,
    summary TEXT,
    constitutional_authority_statement TEXT,
    committees JSONB,
    subjects TEXT[],
    policy_area TEXT,
    status TEXT NOT NULL DEFAULT 'introduced',
    introduced_date DATE,
    last_action_at TIMESTAMPTZ,
    last_action_text TEXT,
    affected_states TEXT[] NOT NULL DEFAULT '{}',
    affected_districts TEXT[] NOT NULL DEFAULT '{}',
    is_national BOOLEAN NOT NULL DEFAULT TRUE,
    congress_gov_url TEXT,
    last_synced_at TIMESTAMPTZ,
    sync_source TEXT NOT NULL DEFAULT 'api',
    confidence_score INTEGER NOT NULL DEFAULT 100,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (congress_number, chamber, bill_type, bill_number)
);

CREATE INDEX IF NOT EXISTS idx_bills_status ON bills(status);
CREATE INDEX IF NOT EXISTS idx_bills_last_synced_at ON bills(last_synced_at);
CREATE INDEX IF NOT EXISTS idx_bills_last_action_at ON bills(last_action_at DESC);

CREATE TABLE IF NOT EXISTS bill_actors (
    id SERIAL PRIMARY KEY,
    bill_id INTEGER NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    actor_type TEXT NOT NULL CHECK (actor_type IN ('sponsor', 'cosponsor', 'committee', 'agency')),
    bioguide_id TEXT NOT NULL,
    name TEXT NOT NULL,
    party TEXT,
    state TEXT,
    district TEXT,
    is_primary BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at DATE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (bill_id, actor_type, bioguide_id)
);

CREATE INDEX IF NOT EXISTS idx_bill_actors_sponsor_state ON bill_actors(state, district) WHERE is_primary;

CREATE TABLE IF NOT EXISTS bill_events (
    id SERIAL PRIMARY KEY,
    bill_id INTEGER NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    chamber TEXT,
    description TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    source TEXT NOT NULL DEFAULT 'api',
    detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (bill_id, event_type, occurred_at)
);

CREATE TABLE IF NOT EXISTS bill_versions (
    id SERIAL PRIMARY KEY,
    bill_id INTEGER NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    version_code TEXT NOT NULL,
    version_name TEXT NOT NULL,
    text_url TEXT,
    published_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (bill_id, version_code)
);

CREATE TABLE IF NOT EXISTS user_stances (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    bill_id INTEGER NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    stance TEXT NOT NULL CHECK (stance IN ('support', 'oppose', 'mixed', 'undecided', 'needs_more_info')),
    reason TEXT NOT NULL,
    zip_code TEXT,
    congressional_district TEXT,
    revision INTEGER NOT NULL DEFAULT 1,
    previous_stance_id INTEGER REFERENCES user_stances(id),
    bill_version_id INTEGER REFERENCES bill_versions(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_user_stances_active ON user_stances(user_id, bill_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_user_stances_bill ON user_stances(bill_id) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS bill_followers (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    bill_id INTEGER NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    notify_on_amendment BOOLEAN NOT NULL DEFAULT TRUE,
    notify_on_vote BOOLEAN NOT NULL DEFAULT TRUE,
    notify_on_status_change BOOLEAN NOT NULL DEFAULT TRUE,
    notify_on_new_discussion BOOLEAN NOT NULL DEFAULT FALSE,
    followed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_notified_at TIMESTAMPTZ,
    UNIQUE (user_id, bill_id)
);

CREATE TABLE IF NOT EXISTS metrics (
    id SERIAL PRIMARY KEY,
    metric_name VARCHAR(100) NOT NULL,
    metric_value TEXT NOT NULL,
    calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_metrics_name_time ON metrics(metric_name, calculated_at DESC);
`
