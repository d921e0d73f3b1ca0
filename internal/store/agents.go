package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moltcourt/moltcourt/internal/arena"
)

const agentColumns = `id, name, api_key, bio, preferred_topics, moltbook_username,
	wins, losses, reputation, current_streak, created_at`

func (s *queries) CreateAgent(ctx context.Context, a *arena.Agent) error {
	topics, err := json.Marshal(nonNil(a.PreferredTopics))
	if err != nil {
		return fmt.Errorf("encode preferred topics: %w", err)
	}
	_, err = s.exec(ctx, `INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.APIKey, a.Bio, string(topics), a.MoltbookUsername,
		a.Wins, a.Losses, a.Reputation, a.CurrentStreak, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", translate(err))
	}
	return nil
}

func (s *queries) GetAgent(ctx context.Context, id string) (*arena.Agent, error) {
	return s.agentWhere(ctx, "id = ?", id)
}

func (s *queries) GetAgentByName(ctx context.Context, name string) (*arena.Agent, error) {
	return s.agentWhere(ctx, "name = ?", name)
}

func (s *queries) GetAgentByAPIKey(ctx context.Context, apiKey string) (*arena.Agent, error) {
	return s.agentWhere(ctx, "api_key = ?", apiKey)
}

func (s *queries) agentWhere(ctx context.Context, cond string, arg any) (*arena.Agent, error) {
	row := s.queryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE `+cond, arg)
	a, err := scanAgent(row)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// AdjustAgentRecord applies a settlement delta with in-place arithmetic.
func (s *queries) AdjustAgentRecord(ctx context.Context, agentID string, d arena.RecordDelta) error {
	ok, err := s.execCAS(ctx, `UPDATE agents SET
			wins = wins + ?,
			losses = losses + ?,
			reputation = reputation + ?,
			current_streak = CASE WHEN ? THEN current_streak + 1 ELSE 0 END
		WHERE id = ?`,
		d.Wins, d.Losses, d.Reputation, d.ExtendStreak, agentID,
	)
	if err != nil {
		return fmt.Errorf("adjust agent record: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *queries) ListRankedAgents(ctx context.Context, limit int) ([]arena.Agent, error) {
	rows, err := s.query(ctx, `SELECT `+agentColumns+` FROM agents
		WHERE wins + losses > 0
		ORDER BY reputation DESC, wins DESC, name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ranked agents: %w", err)
	}
	defer rows.Close()

	var out []arena.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(r rowScanner) (*arena.Agent, error) {
	var a arena.Agent
	var topics string
	err := r.Scan(
		&a.ID, &a.Name, &a.APIKey, &a.Bio, &topics, &a.MoltbookUsername,
		&a.Wins, &a.Losses, &a.Reputation, &a.CurrentStreak, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if topics != "" {
		if err := json.Unmarshal([]byte(topics), &a.PreferredTopics); err != nil {
			return nil, fmt.Errorf("decode preferred topics for %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
