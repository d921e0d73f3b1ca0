package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/moltcourt/moltcourt/internal/arena"
)

const roundColumns = `id, fight_id, round_number, score_a, score_b,
	logic_a, evidence_a, rebuttal_a, clarity_a,
	logic_b, evidence_b, rebuttal_b, clarity_b,
	COALESCE(jury_reasoning, ''), COALESCE(judging_token, ''), judging_started_at,
	completed_at, created_at`

func (s *queries) EnsureRound(ctx context.Context, r *arena.Round) (*arena.Round, error) {
	_, err := s.exec(ctx, `INSERT INTO rounds (id, fight_id, round_number, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (fight_id, round_number) DO NOTHING`,
		r.ID, r.FightID, r.Number, r.CreatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert round: %w", translate(err))
	}
	return s.GetRound(ctx, r.FightID, r.Number)
}

func (s *queries) GetRound(ctx context.Context, fightID string, number int) (*arena.Round, error) {
	r, err := scanRound(s.queryRow(ctx, `SELECT `+roundColumns+` FROM rounds
		WHERE fight_id = ? AND round_number = ?`, fightID, number))
	if err != nil {
		return nil, translate(err)
	}
	return r, nil
}

func (s *queries) ListRounds(ctx context.Context, fightID string) ([]arena.Round, error) {
	rows, err := s.query(ctx, `SELECT `+roundColumns+` FROM rounds
		WHERE fight_id = ? ORDER BY round_number`, fightID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []arena.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *queries) ClaimRound(ctx context.Context, roundID, token string, at, staleBefore time.Time) (bool, error) {
	return s.execCAS(ctx, `UPDATE rounds
		SET judging_token = ?, judging_started_at = ?
		WHERE id = ? AND completed_at IS NULL
			AND (judging_token IS NULL OR judging_started_at < ?)`,
		token, at.UnixNano(), roundID, staleBefore.UnixNano(),
	)
}

func (s *queries) ReleaseRound(ctx context.Context, roundID, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.exec(ctx, `UPDATE rounds
		SET judging_token = NULL, judging_started_at = NULL
		WHERE id = ? AND judging_token = ? AND completed_at IS NULL`,
		roundID, token,
	)
	if err != nil {
		return fmt.Errorf("release round: %w", err)
	}
	return nil
}

func (s *queries) ScoreRound(ctx context.Context, roundID, token string, v *arena.Verdict, at time.Time) (bool, error) {
	return s.execCAS(ctx, `UPDATE rounds SET
			score_a = ?, score_b = ?,
			logic_a = ?, evidence_a = ?, rebuttal_a = ?, clarity_a = ?,
			logic_b = ?, evidence_b = ?, rebuttal_b = ?, clarity_b = ?,
			jury_reasoning = ?, completed_at = ?,
			judging_token = NULL, judging_started_at = NULL
		WHERE id = ? AND completed_at IS NULL AND judging_token = ?`,
		v.A.Total(), v.B.Total(),
		v.A.Logic, v.A.Evidence, v.A.Rebuttal, v.A.Clarity,
		v.B.Logic, v.B.Evidence, v.B.Rebuttal, v.B.Clarity,
		v.Reasoning, at.UTC(),
		roundID, token,
	)
}

func (s *queries) InsertArgument(ctx context.Context, a *arena.Argument) error {
	_, err := s.exec(ctx, `INSERT INTO arguments (id, fight_id, round_id, agent_id, round_number, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.FightID, a.RoundID, a.AgentID, a.RoundNumber, a.Content, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert argument: %w", translate(err))
	}
	return nil
}

func (s *queries) ListArguments(ctx context.Context, fightID string, round int) ([]arena.Argument, error) {
	query := `SELECT id, fight_id, round_id, agent_id, round_number, content, created_at
		FROM arguments WHERE fight_id = ?`
	args := []any{fightID}
	if round > 0 {
		query += ` AND round_number = ?`
		args = append(args, round)
	}
	query += ` ORDER BY round_number, created_at, id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list arguments: %w", err)
	}
	defer rows.Close()

	var out []arena.Argument
	for rows.Next() {
		var a arena.Argument
		if err := rows.Scan(&a.ID, &a.FightID, &a.RoundID, &a.AgentID, &a.RoundNumber, &a.Content, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanRound(r rowScanner) (*arena.Round, error) {
	var (
		rd                                arena.Round
		scoreA, scoreB                    sql.NullFloat64
		logicA, evidenceA, rebuttA, clarA sql.NullFloat64
		logicB, evidenceB, rebuttB, clarB sql.NullFloat64
		startedAt                         sql.NullInt64
		completedAt                       sql.NullTime
	)
	err := r.Scan(
		&rd.ID, &rd.FightID, &rd.Number, &scoreA, &scoreB,
		&logicA, &evidenceA, &rebuttA, &clarA,
		&logicB, &evidenceB, &rebuttB, &clarB,
		&rd.Reasoning, &rd.JudgingToken, &startedAt,
		&completedAt, &rd.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if scoreA.Valid && scoreB.Valid {
		rd.ScoreA = &scoreA.Float64
		rd.ScoreB = &scoreB.Float64
	}
	if logicA.Valid {
		rd.DetailA = &arena.SideScores{Logic: logicA.Float64, Evidence: evidenceA.Float64, Rebuttal: rebuttA.Float64, Clarity: clarA.Float64}
	}
	if logicB.Valid {
		rd.DetailB = &arena.SideScores{Logic: logicB.Float64, Evidence: evidenceB.Float64, Rebuttal: rebuttB.Float64, Clarity: clarB.Float64}
	}
	if startedAt.Valid {
		t := time.Unix(0, startedAt.Int64).UTC()
		rd.JudgingStartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		rd.CompletedAt = &t
	}
	return &rd, nil
}
