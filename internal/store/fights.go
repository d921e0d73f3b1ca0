package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/moltcourt/moltcourt/internal/arena"
)

const fightColumns = `id, agent_a_id, COALESCE(agent_b_id, ''), topic, total_rounds, current_round,
	status, COALESCE(winner_id, ''), stakes_usdc, created_at, updated_at`

func (s *queries) CreateFight(ctx context.Context, f *arena.Fight) error {
	_, err := s.exec(ctx, `INSERT INTO fights (id, agent_a_id, agent_b_id, topic, total_rounds,
			current_round, status, winner_id, stakes_usdc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.AgentAID, nullString(f.AgentBID), f.Topic, f.TotalRounds,
		f.CurrentRound, string(f.Status), nullString(f.WinnerID), f.Stakes,
		f.CreatedAt.UTC(), f.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert fight: %w", translate(err))
	}
	return nil
}

func (s *queries) GetFight(ctx context.Context, id string) (*arena.Fight, error) {
	f, err := scanFight(s.queryRow(ctx, `SELECT `+fightColumns+` FROM fights WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

// LockFight takes a row lock on PostgreSQL. SQLite transactions begin
// IMMEDIATE and already exclude other writers.
func (s *queries) LockFight(ctx context.Context, id string) (*arena.Fight, error) {
	query := `SELECT ` + fightColumns + ` FROM fights WHERE id = ?`
	if s.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}
	f, err := scanFight(s.queryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (s *queries) ListFights(ctx context.Context, filter arena.FightFilter) ([]arena.Fight, error) {
	query := `SELECT ` + fightColumns + ` FROM fights`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fights: %w", err)
	}
	defer rows.Close()

	var out []arena.Fight
	for rows.Next() {
		f, err := scanFight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *queries) ActivateFight(ctx context.Context, fightID, opponentID string, at time.Time) (bool, error) {
	return s.execCAS(ctx, `UPDATE fights
		SET agent_b_id = ?, status = 'ACTIVE', current_round = 1, updated_at = ?
		WHERE id = ? AND status = 'PENDING' AND agent_b_id IS NULL AND agent_a_id <> ?`,
		opponentID, at.UTC(), fightID, opponentID,
	)
}

func (s *queries) AdvanceRound(ctx context.Context, fightID string, from int, at time.Time) (bool, error) {
	return s.execCAS(ctx, `UPDATE fights
		SET current_round = current_round + 1, updated_at = ?
		WHERE id = ? AND status = 'ACTIVE' AND current_round = ? AND current_round < total_rounds`,
		at.UTC(), fightID, from,
	)
}

func (s *queries) CompleteFight(ctx context.Context, fightID, winnerID string, at time.Time) (bool, error) {
	return s.execCAS(ctx, `UPDATE fights
		SET status = 'COMPLETED', winner_id = ?, updated_at = ?
		WHERE id = ? AND status = 'ACTIVE'`,
		winnerID, at.UTC(), fightID,
	)
}

func scanFight(r rowScanner) (*arena.Fight, error) {
	var f arena.Fight
	var status string
	err := r.Scan(
		&f.ID, &f.AgentAID, &f.AgentBID, &f.Topic, &f.TotalRounds, &f.CurrentRound,
		&status, &f.WinnerID, &f.Stakes, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = arena.FightStatus(status)
	return &f, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
