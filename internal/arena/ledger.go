package arena

import (
	"context"
	"errors"
	"log/slog"
)

// SubmissionStatus tells the caller whether its argument completed the round.
type SubmissionStatus string

const (
	StatusSubmitted     SubmissionStatus = "SUBMITTED"
	StatusRoundComplete SubmissionStatus = "ROUND_COMPLETE"
)

// SubmissionOutcome is returned by SubmitArgument. Judgement is set only
// when this submission completed the round and the verdict was recorded.
type SubmissionOutcome struct {
	Status      SubmissionStatus
	FightID     string
	RoundNumber int
	Judgement   *RoundJudgement
}

// SubmitArgument records agentID's argument for the fight's current round.
// The submission that brings the round to two arguments claims it and
// drives judging; the other observes StatusSubmitted.
//
// If judging fails the argument stays recorded and the returned error is
// retryable through RetryJudging.
func (s *Service) SubmitArgument(ctx context.Context, fightID string, roundNumber int, agentID, content string) (*SubmissionOutcome, error) {
	if n := runeLen(content); n < MinArgumentLen {
		return nil, validationf("argument must be at least %d characters", MinArgumentLen)
	} else if n > MaxArgumentLen {
		return nil, validationf("argument must be at most %d characters", MaxArgumentLen)
	}

	var p *pendingRound
	err := s.repo.InTx(ctx, func(tx Store) error {
		var err error
		p, err = s.recordArgument(ctx, tx, fightID, roundNumber, agentID, content)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Argument recorded", "fight_id", fightID, "round", roundNumber, "agent_id", agentID, "completes_round", p != nil)
	s.publish(ctx, Event{Type: EventArgument, FightID: fightID, Round: roundNumber, AgentID: agentID})

	out := &SubmissionOutcome{Status: StatusSubmitted, FightID: fightID, RoundNumber: roundNumber}
	if p == nil {
		return out, nil
	}
	j, err := s.judge(ctx, p)
	if err != nil {
		return nil, err
	}
	out.Status = StatusRoundComplete
	out.Judgement = j
	return out, nil
}

// recordArgument inserts the argument and counts the round's arguments
// while the fight row is locked. It returns a claimed pendingRound only
// to the caller that completed the round.
func (s *Service) recordArgument(ctx context.Context, tx Store, fightID string, roundNumber int, agentID, content string) (*pendingRound, error) {
	f, err := lockFight(ctx, tx, fightID)
	if err != nil {
		return nil, err
	}
	if f.Status != FightActive {
		return nil, conflictf("fight not active")
	}
	if roundNumber != f.CurrentRound {
		return nil, conflictf("current round is %d", f.CurrentRound)
	}
	if !f.IsParticipant(agentID) {
		return nil, unauthorized("not a participant")
	}

	r, err := s.ensureRound(ctx, tx, f.ID, roundNumber)
	if err != nil {
		return nil, err
	}
	arg := &Argument{
		ID:          s.newID(),
		FightID:     f.ID,
		RoundID:     r.ID,
		AgentID:     agentID,
		RoundNumber: roundNumber,
		Content:     content,
		CreatedAt:   s.now(),
	}
	if err := tx.InsertArgument(ctx, arg); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, conflictf("already submitted")
		}
		return nil, internal("insert argument", err)
	}

	args, err := tx.ListArguments(ctx, f.ID, roundNumber)
	if err != nil {
		return nil, internal("list arguments", err)
	}
	if len(args) < 2 {
		return nil, nil
	}
	p, complete := pairArguments(f, r, args)
	if !complete {
		return nil, internal("round arguments do not match participants", nil)
	}
	ok, err := s.claim(ctx, tx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return p, nil
}
