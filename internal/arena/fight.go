package arena

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// CreateFightInput holds the challenge parameters. Rounds of 0 selects
// DefaultRounds; any other value is clamped into [MinRounds, MaxRounds].
type CreateFightInput struct {
	Topic        string
	Rounds       int
	OpponentName string
	Stakes       float64
}

// ClampRounds normalises a requested round count.
func ClampRounds(n int) int {
	switch {
	case n == 0:
		return DefaultRounds
	case n < MinRounds:
		return MinRounds
	case n > MaxRounds:
		return MaxRounds
	}
	return n
}

// CreateFight posts a challenge. Naming an opponent starts the fight
// immediately; otherwise it stays open until someone accepts it.
func (s *Service) CreateFight(ctx context.Context, challengerID string, in CreateFightInput) (*Fight, error) {
	topic := strings.TrimSpace(in.Topic)
	if n := runeLen(topic); n < MinTopicLen {
		return nil, validationf("topic too short (min %d chars)", MinTopicLen)
	} else if n > MaxTopicLen {
		return nil, validationf("topic too long (max %d chars)", MaxTopicLen)
	}
	if math.IsNaN(in.Stakes) || in.Stakes < 0 {
		return nil, validationf("stakes_usdc must be non-negative")
	}
	if _, err := s.GetAgent(ctx, challengerID); err != nil {
		return nil, err
	}

	now := s.now()
	f := &Fight{
		ID:          s.newID(),
		AgentAID:    challengerID,
		Topic:       topic,
		TotalRounds: ClampRounds(in.Rounds),
		Status:      FightPending,
		Stakes:      in.Stakes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if name := strings.TrimSpace(in.OpponentName); name != "" {
		opp, err := s.repo.GetAgentByName(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(fmt.Sprintf("agent '%s' not found", name))
		}
		if err != nil {
			return nil, internal("lookup opponent", err)
		}
		if opp.ID == challengerID {
			return nil, conflictf("cannot challenge yourself")
		}
		f.AgentBID = opp.ID
		f.Status = FightActive
		f.CurrentRound = 1
	}

	err := s.repo.InTx(ctx, func(tx Store) error {
		if err := tx.CreateFight(ctx, f); err != nil {
			return internal("create fight", err)
		}
		if f.Status == FightActive {
			if _, err := s.ensureRound(ctx, tx, f.ID, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Fight created", "fight_id", f.ID, "status", f.Status, "rounds", f.TotalRounds)
	s.publish(ctx, Event{Type: EventFightCreated, FightID: f.ID, AgentID: challengerID, At: now})
	return f, nil
}

// AcceptFight binds agentID as the opponent of an open fight and opens
// round 1.
func (s *Service) AcceptFight(ctx context.Context, fightID, agentID string) (*Fight, error) {
	var out *Fight
	err := s.repo.InTx(ctx, func(tx Store) error {
		f, err := lockFight(ctx, tx, fightID)
		if err != nil {
			return err
		}
		if f.Status != FightPending {
			return conflictf("fight not open")
		}
		if f.AgentAID == agentID {
			return conflictf("cannot fight yourself")
		}
		now := s.now()
		ok, err := tx.ActivateFight(ctx, f.ID, agentID, now)
		if err != nil {
			return internal("activate fight", err)
		}
		if !ok {
			return conflictf("fight not open")
		}
		if _, err := s.ensureRound(ctx, tx, f.ID, 1); err != nil {
			return err
		}
		f.AgentBID = agentID
		f.Status = FightActive
		f.CurrentRound = 1
		f.UpdatedAt = now
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Fight accepted", "fight_id", out.ID, "agent_id", agentID)
	s.publish(ctx, Event{Type: EventFightAccepted, FightID: out.ID, AgentID: agentID, Round: 1})
	return out, nil
}

// ensureRound is the only place round rows are materialised.
func (s *Service) ensureRound(ctx context.Context, tx Store, fightID string, number int) (*Round, error) {
	r, err := tx.EnsureRound(ctx, &Round{
		ID:        s.newID(),
		FightID:   fightID,
		Number:    number,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, internal(fmt.Sprintf("ensure round %d", number), err)
	}
	return r, nil
}

func lockFight(ctx context.Context, tx Store, id string) (*Fight, error) {
	f, err := tx.LockFight(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("fight not found")
	}
	if err != nil {
		return nil, internal("load fight", err)
	}
	return f, nil
}

// RoundJudgement is the recorded outcome of a judged round. NextRound is 0
// once the fight has completed.
type RoundJudgement struct {
	FightID     string
	RoundNumber int
	ScoreA      float64
	ScoreB      float64
	DetailA     SideScores
	DetailB     SideScores
	Reasoning   string
	NextRound   int
	FightStatus FightStatus
	WinnerID    string
	WinnerName  string
}

// pendingRound is a round holding both arguments and a judging claim.
type pendingRound struct {
	fight Fight
	round Round
	token string
	argA  Argument
	argB  Argument
}

func pairArguments(f *Fight, r *Round, args []Argument) (*pendingRound, bool) {
	p := &pendingRound{fight: *f, round: *r}
	for _, a := range args {
		switch a.AgentID {
		case f.AgentAID:
			p.argA = a
		case f.AgentBID:
			p.argB = a
		}
	}
	return p, p.argA.ID != "" && p.argB.ID != ""
}

// claim takes the judging claim for p's round inside tx.
func (s *Service) claim(ctx context.Context, tx Store, p *pendingRound) (bool, error) {
	token := s.newID()
	now := s.now()
	ok, err := tx.ClaimRound(ctx, p.round.ID, token, now, now.Add(-s.lease))
	if err != nil {
		return false, internal("claim round", err)
	}
	if ok {
		p.token = token
	}
	return ok, nil
}

// reclaim re-takes a lost claim when the round is still unscored and no
// live claim holds it. A scored round is a conflict.
func (s *Service) reclaim(ctx context.Context, tx Store, p *pendingRound) (bool, error) {
	r, err := tx.GetRound(ctx, p.fight.ID, p.round.Number)
	if err != nil {
		return false, internal("load round", err)
	}
	if r.Judged() {
		return false, conflictf("round already judged")
	}
	ok, err := s.claim(ctx, tx, p)
	if ok {
		slog.Info("Judging claim re-taken", "fight_id", p.fight.ID, "round", p.round.Number)
	}
	return ok, err
}

func (s *Service) release(ctx context.Context, p *pendingRound) {
	if err := s.repo.ReleaseRound(context.WithoutCancel(ctx), p.round.ID, p.token); err != nil {
		slog.Error("Release judging claim failed", "fight_id", p.fight.ID, "round", p.round.Number, "error", err)
	}
}

// RetryJudging re-runs the oracle for a round that holds both arguments
// but was never scored, typically after an oracle failure.
func (s *Service) RetryJudging(ctx context.Context, fightID string, roundNumber int, agentID string) (*RoundJudgement, error) {
	var p *pendingRound
	err := s.repo.InTx(ctx, func(tx Store) error {
		f, err := lockFight(ctx, tx, fightID)
		if err != nil {
			return err
		}
		if f.Status != FightActive {
			return conflictf("fight not active")
		}
		if roundNumber != f.CurrentRound {
			return conflictf("current round is %d", f.CurrentRound)
		}
		if !f.IsParticipant(agentID) {
			return unauthorized("not a participant")
		}
		r, err := tx.GetRound(ctx, f.ID, roundNumber)
		if errors.Is(err, ErrNotFound) {
			return conflictf("round awaiting arguments")
		}
		if err != nil {
			return internal("load round", err)
		}
		if r.Judged() {
			return conflictf("round already judged")
		}
		args, err := tx.ListArguments(ctx, f.ID, roundNumber)
		if err != nil {
			return internal("list arguments", err)
		}
		pr, complete := pairArguments(f, r, args)
		if !complete {
			return conflictf("round awaiting arguments")
		}
		ok, err := s.claim(ctx, tx, pr)
		if err != nil {
			return err
		}
		if !ok {
			return conflictf("judging in progress")
		}
		p = pr
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Retrying round judging", "fight_id", fightID, "round", roundNumber, "agent_id", agentID)
	return s.judge(ctx, p)
}

// judge asks the oracle for a verdict and records it. Any failure before
// the verdict commits releases the claim and leaves the round unscored.
func (s *Service) judge(ctx context.Context, p *pendingRound) (*RoundJudgement, error) {
	req, err := s.scoreRequest(ctx, p)
	if err != nil {
		s.release(ctx, p)
		return nil, err
	}

	// Bounded by the lease so a queued or slow call does not outlive its claim.
	scoreCtx, cancel := context.WithTimeout(ctx, s.lease)
	verdict, err := s.oracle.Score(scoreCtx, req)
	cancel()
	if err == nil {
		err = verdict.Validate()
	}
	if err != nil {
		s.release(ctx, p)
		if !IsRetryable(err) {
			err = NewError(KindOracleUnavailable, "jury unavailable", err)
		}
		slog.Warn("Round judging failed", "fight_id", p.fight.ID, "round", p.round.Number, "error", err)
		s.publish(ctx, Event{Type: EventJudgingFailed, FightID: p.fight.ID, Round: p.round.Number, Reason: ReasonOf(err)})
		return nil, err
	}

	var j *RoundJudgement
	err = s.repo.InTx(ctx, func(tx Store) error {
		var err error
		j, err = s.completeRound(ctx, tx, p, verdict)
		return err
	})
	if err != nil {
		s.release(ctx, p)
		return nil, err
	}
	switch j.WinnerID {
	case "":
	case p.fight.AgentAID:
		j.WinnerName = req.AgentAName
	default:
		j.WinnerName = req.AgentBName
	}

	slog.Info("Round judged", "fight_id", j.FightID, "round", j.RoundNumber, "score_a", j.ScoreA, "score_b", j.ScoreB)
	s.publish(ctx, Event{
		Type:    EventRoundJudged,
		FightID: j.FightID,
		Round:   j.RoundNumber,
		ScoreA:  &j.ScoreA,
		ScoreB:  &j.ScoreB,
		Reason:  j.Reasoning,
	})
	if j.FightStatus == FightCompleted {
		slog.Info("Fight completed", "fight_id", j.FightID, "winner_id", j.WinnerID)
		s.publish(ctx, Event{Type: EventFightCompleted, FightID: j.FightID, Round: j.RoundNumber, WinnerID: j.WinnerID})
	}
	return j, nil
}

// completeRound records the verdict and either advances the fight or
// settles it when the final round has been scored.
func (s *Service) completeRound(ctx context.Context, tx Store, p *pendingRound, v *Verdict) (*RoundJudgement, error) {
	f, err := lockFight(ctx, tx, p.fight.ID)
	if err != nil {
		return nil, err
	}
	if f.Status != FightActive || f.CurrentRound != p.round.Number {
		return nil, conflictf("round already judged")
	}
	now := s.now()
	ok, err := tx.ScoreRound(ctx, p.round.ID, p.token, v, now)
	if err != nil {
		return nil, internal("score round", err)
	}
	if !ok {
		// The claim expired and a retry took it over.
		if ok, err = s.reclaim(ctx, tx, p); err != nil {
			return nil, err
		}
		if ok {
			ok, err = tx.ScoreRound(ctx, p.round.ID, p.token, v, now)
			if err != nil {
				return nil, internal("score round", err)
			}
		}
		if !ok {
			return nil, NewError(KindOracleUnavailable, "judging superseded", nil)
		}
	}

	j := &RoundJudgement{
		FightID:     f.ID,
		RoundNumber: p.round.Number,
		ScoreA:      v.A.Total(),
		ScoreB:      v.B.Total(),
		DetailA:     v.A,
		DetailB:     v.B,
		Reasoning:   v.Reasoning,
	}
	if p.round.Number >= f.TotalRounds {
		res, err := s.settle(ctx, tx, f, now)
		if err != nil {
			return nil, err
		}
		j.FightStatus = FightCompleted
		j.WinnerID = res.WinnerID
		return j, nil
	}

	ok, err = tx.AdvanceRound(ctx, f.ID, p.round.Number, now)
	if err != nil {
		return nil, internal("advance round", err)
	}
	if !ok {
		return nil, internal(fmt.Sprintf("advance round: fight %s left round %d", f.ID, p.round.Number), nil)
	}
	if _, err := s.ensureRound(ctx, tx, f.ID, p.round.Number+1); err != nil {
		return nil, err
	}
	j.FightStatus = FightActive
	j.NextRound = p.round.Number + 1
	return j, nil
}

func (s *Service) scoreRequest(ctx context.Context, p *pendingRound) (*ScoreRequest, error) {
	a, err := s.GetAgent(ctx, p.fight.AgentAID)
	if err != nil {
		return nil, err
	}
	b, err := s.GetAgent(ctx, p.fight.AgentBID)
	if err != nil {
		return nil, err
	}
	rounds, err := s.repo.ListRounds(ctx, p.fight.ID)
	if err != nil {
		return nil, internal("list rounds", err)
	}
	args, err := s.repo.ListArguments(ctx, p.fight.ID, 0)
	if err != nil {
		return nil, internal("list arguments", err)
	}

	req := &ScoreRequest{
		FightID:     p.fight.ID,
		Topic:       p.fight.Topic,
		RoundNumber: p.round.Number,
		AgentAName:  a.Name,
		AgentBName:  b.Name,
		ArgumentA:   p.argA.Content,
		ArgumentB:   p.argB.Content,
	}
	for _, r := range rounds {
		if r.Number >= p.round.Number || !r.Judged() || r.ScoreA == nil || r.ScoreB == nil {
			continue
		}
		pr := PriorRound{Number: r.Number, ScoreA: *r.ScoreA, ScoreB: *r.ScoreB}
		for _, arg := range args {
			if arg.RoundNumber != r.Number {
				continue
			}
			switch arg.AgentID {
			case p.fight.AgentAID:
				pr.ArgumentA = arg.Content
			case p.fight.AgentBID:
				pr.ArgumentB = arg.Content
			}
		}
		req.Prior = append(req.Prior, pr)
	}
	return req, nil
}
