// Package postgres — migrations.go содержит схему БД.
// SQL-миграции встроены в код для упрощения деплоя.
package postgres

// Migration — одна версия схемы.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations возвращает миграции по возрастанию версии.
func Migrations() []Migration {
	return []Migration{
		{1, "action_events", migration001ActionEvents},
		{2, "user_signals", migration002UserSignals},
		{3, "daily_light_scores", migration003DailyScores},
		{4, "epochs", migration004Epochs},
		{5, "mint_allocations", migration005MintAllocations},
		{6, "admin_login_attempts", migration006Admin},
	}
}

// action_events — сырые действия. event_id уникален, повторная доставка из Kafka безопасна.
var migration001ActionEvents = `
CREATE TABLE IF NOT EXISTS action_events (
    id BIGSERIAL PRIMARY KEY,
    event_id VARCHAR(128) UNIQUE NOT NULL,
    user_id VARCHAR(128) NOT NULL,
    action_type VARCHAR(64) NOT NULL,
    content_type VARCHAR(64),
    rating_avg DOUBLE PRECISION,
    rating_count INTEGER,
    sequence_tag VARCHAR(128),
    occurred_at TIMESTAMPTZ NOT NULL,
    received_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_action_events_user_time ON action_events(user_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_action_events_time ON action_events(occurred_at);
`

var migration002UserSignals = `
CREATE TABLE IF NOT EXISTS user_signals (
    user_id VARCHAR(128) PRIMARY KEY,
    reputation_score DOUBLE PRECISION DEFAULT 0,
    suspicious_score DOUBLE PRECISION DEFAULT 0,
    violation_level INTEGER DEFAULT 0,
    completed_steps TEXT[] DEFAULT '{}',
    total_steps INTEGER DEFAULT 0,
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
`

var migration003DailyScores = `
CREATE TABLE IF NOT EXISTS daily_light_scores (
    user_id VARCHAR(128) NOT NULL,
    day DATE NOT NULL,
    rule_version VARCHAR(32) NOT NULL,
    light_score DOUBLE PRECISION NOT NULL,
    breakdown JSONB NOT NULL,
    reasons TEXT[] DEFAULT '{}',
    computed_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (user_id, day, rule_version)
);
CREATE INDEX IF NOT EXISTS idx_daily_light_scores_day ON daily_light_scores(day, rule_version);
`

var migration004Epochs = `
CREATE TABLE IF NOT EXISTS epochs (
    id VARCHAR(32) PRIMARY KEY,
    starts_at TIMESTAMPTZ NOT NULL,
    ends_at TIMESTAMPTZ NOT NULL,
    pool_amount DOUBLE PRECISION NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'open',
    rule_version VARCHAR(32) NOT NULL,
    run_id UUID,
    pool_units BIGINT DEFAULT 0,
    minted_units BIGINT DEFAULT 0,
    unminted_units BIGINT DEFAULT 0,
    capped_excess_units BIGINT DEFAULT 0,
    qualified_users INTEGER DEFAULT 0,
    capped_users INTEGER DEFAULT 0,
    closed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_epochs_status ON epochs(status, ends_at);
`

var migration005MintAllocations = `
CREATE TABLE IF NOT EXISTS mint_allocations (
    epoch_id VARCHAR(32) NOT NULL REFERENCES epochs(id),
    user_id VARCHAR(128) NOT NULL,
    light_score DOUBLE PRECISION NOT NULL,
    qualified BOOLEAN NOT NULL,
    raw_units BIGINT NOT NULL,
    final_units BIGINT NOT NULL,
    capped BOOLEAN NOT NULL,
    reasons TEXT[] DEFAULT '{}',
    run_id UUID NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (epoch_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_mint_allocations_user ON mint_allocations(user_id);
`

var migration006Admin = `
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    client_ip VARCHAR(64) NOT NULL,
    attempt_time TIMESTAMPTZ DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_ip ON admin_login_attempts(client_ip, attempt_time DESC);
`
