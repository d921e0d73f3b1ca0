package store

import "strings"

// schema is written in the SQLite dialect and rewritten for PostgreSQL by
// schemaFor. judging_started_at holds unix nanoseconds so lease comparisons
// stay numeric on both engines.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		api_key TEXT NOT NULL UNIQUE,
		bio TEXT NOT NULL DEFAULT '',
		preferred_topics TEXT NOT NULL DEFAULT '[]',
		moltbook_username TEXT NOT NULL DEFAULT '',
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		reputation INTEGER NOT NULL DEFAULT 0,
		current_streak INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fights (
		id TEXT PRIMARY KEY,
		agent_a_id TEXT NOT NULL REFERENCES agents(id),
		agent_b_id TEXT REFERENCES agents(id),
		topic TEXT NOT NULL,
		total_rounds INTEGER NOT NULL,
		current_round INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'PENDING',
		winner_id TEXT REFERENCES agents(id),
		stakes_usdc REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fights_status ON fights(status, created_at)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		fight_id TEXT NOT NULL REFERENCES fights(id) ON DELETE CASCADE,
		round_number INTEGER NOT NULL,
		score_a REAL,
		score_b REAL,
		logic_a REAL,
		evidence_a REAL,
		rebuttal_a REAL,
		clarity_a REAL,
		logic_b REAL,
		evidence_b REAL,
		rebuttal_b REAL,
		clarity_b REAL,
		jury_reasoning TEXT,
		judging_token TEXT,
		judging_started_at BIGINT,
		completed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (fight_id, round_number)
	)`,
	`CREATE TABLE IF NOT EXISTS arguments (
		id TEXT PRIMARY KEY,
		fight_id TEXT NOT NULL REFERENCES fights(id) ON DELETE CASCADE,
		round_id TEXT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		round_number INTEGER NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (fight_id, agent_id, round_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_arguments_round ON arguments(fight_id, round_number)`,
}

var pgTypes = strings.NewReplacer(" REAL", " DOUBLE PRECISION", " TIMESTAMP", " TIMESTAMPTZ")

func schemaFor(d Dialect) []string {
	if d != DialectPostgres {
		return schema
	}
	out := make([]string, len(schema))
	for i, stmt := range schema {
		out[i] = pgTypes.Replace(stmt)
	}
	return out
}
