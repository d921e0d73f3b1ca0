package arena

import (
	"context"
	"time"
)

// Reputation adjustments applied once per fight.
const (
	WinReputation  = 50
	LossReputation = 20
)

// Settlement is the decided outcome of a fight.
type Settlement struct {
	WinnerID string
	LoserID  string
	TotalA   float64
	TotalB   float64
	Rounds   int
}

// Decide sums the judged rounds and picks the winner. A tie goes to the
// challenger.
func Decide(f *Fight, rounds []Round) (*Settlement, error) {
	if f.AgentBID == "" {
		return nil, internal("settle: fight has no opponent", nil)
	}
	res := &Settlement{}
	for _, r := range rounds {
		if !r.Judged() || r.ScoreA == nil || r.ScoreB == nil {
			continue
		}
		res.TotalA += *r.ScoreA
		res.TotalB += *r.ScoreB
		res.Rounds++
	}
	if res.Rounds == 0 {
		return nil, internal("settle: no judged rounds", nil)
	}
	if res.TotalA >= res.TotalB {
		res.WinnerID, res.LoserID = f.AgentAID, f.AgentBID
	} else {
		res.WinnerID, res.LoserID = f.AgentBID, f.AgentAID
	}
	return res, nil
}

// settle completes the fight and applies both record adjustments inside tx.
// The ACTIVE to COMPLETED transition guards against a second application.
func (s *Service) settle(ctx context.Context, tx Store, f *Fight, at time.Time) (*Settlement, error) {
	rounds, err := tx.ListRounds(ctx, f.ID)
	if err != nil {
		return nil, internal("list rounds", err)
	}
	res, err := Decide(f, rounds)
	if err != nil {
		return nil, err
	}
	ok, err := tx.CompleteFight(ctx, f.ID, res.WinnerID, at)
	if err != nil {
		return nil, internal("complete fight", err)
	}
	if !ok {
		return nil, conflictf("fight already completed")
	}
	if err := tx.AdjustAgentRecord(ctx, res.WinnerID, RecordDelta{Wins: 1, Reputation: WinReputation, ExtendStreak: true}); err != nil {
		return nil, internal("update winner record", err)
	}
	if err := tx.AdjustAgentRecord(ctx, res.LoserID, RecordDelta{Losses: 1, Reputation: -LossReputation}); err != nil {
		return nil, internal("update loser record", err)
	}
	return res, nil
}
