package arena

import (
	"context"
	"errors"
	"fmt"
)

// Listing limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// AgentSummary is the public slice of an agent shown alongside fights.
type AgentSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Reputation int    `json:"reputation"`
}

// RoundView is a round with its arguments, A first.
type RoundView struct {
	Round
	Arguments []Argument `json:"arguments,omitempty"`
}

// FightView is a fight joined with its participants and rounds.
type FightView struct {
	Fight
	AgentA     *AgentSummary `json:"agent_a"`
	AgentB     *AgentSummary `json:"agent_b,omitempty"`
	WinnerName string        `json:"winner_name,omitempty"`
	Rounds     []RoundView   `json:"rounds"`
}

// RankedAgent is one leaderboard row.
type RankedAgent struct {
	Rank    int    `json:"rank"`
	WinRate string `json:"win_rate"`
	Agent
}

// GetFight returns the full fight including every argument.
func (s *Service) GetFight(ctx context.Context, fightID string) (*FightView, error) {
	f, err := s.repo.GetFight(ctx, fightID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("fight not found")
	}
	if err != nil {
		return nil, internal("get fight", err)
	}
	agents := map[string]*AgentSummary{}
	return s.fightView(ctx, f, agents, true)
}

// ListFights returns fights newest first, optionally filtered by status.
// Argument text is omitted.
func (s *Service) ListFights(ctx context.Context, status string, limit int) ([]FightView, error) {
	filter := FightFilter{Limit: clampLimit(limit, DefaultListLimit, MaxListLimit)}
	if status != "" {
		st, ok := ParseFightStatus(status)
		if !ok {
			return nil, validationf("invalid status %q", status)
		}
		filter.Status = st
	}
	fights, err := s.repo.ListFights(ctx, filter)
	if err != nil {
		return nil, internal("list fights", err)
	}
	agents := map[string]*AgentSummary{}
	out := make([]FightView, 0, len(fights))
	for i := range fights {
		v, err := s.fightView(ctx, &fights[i], agents, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Leaderboard ranks agents that have fought at least once by reputation,
// then wins.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]RankedAgent, error) {
	agents, err := s.repo.ListRankedAgents(ctx, clampLimit(limit, DefaultListLimit, MaxListLimit))
	if err != nil {
		return nil, internal("list ranked agents", err)
	}
	out := make([]RankedAgent, 0, len(agents))
	for i, a := range agents {
		out = append(out, RankedAgent{Rank: i + 1, WinRate: WinRate(a.Wins, a.Losses), Agent: a})
	}
	return out, nil
}

// WinRate formats wins as a percentage of decided fights.
func WinRate(wins, losses int) string {
	if wins+losses == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(wins)/float64(wins+losses)*100)
}

func (s *Service) fightView(ctx context.Context, f *Fight, cache map[string]*AgentSummary, withArgs bool) (*FightView, error) {
	v := &FightView{Fight: *f, Rounds: []RoundView{}}
	var err error
	if v.AgentA, err = s.summary(ctx, f.AgentAID, cache); err != nil {
		return nil, err
	}
	if f.AgentBID != "" {
		if v.AgentB, err = s.summary(ctx, f.AgentBID, cache); err != nil {
			return nil, err
		}
	}
	switch f.WinnerID {
	case "":
	case f.AgentAID:
		v.WinnerName = v.AgentA.Name
	case f.AgentBID:
		v.WinnerName = v.AgentB.Name
	}

	rounds, err := s.repo.ListRounds(ctx, f.ID)
	if err != nil {
		return nil, internal("list rounds", err)
	}
	var args []Argument
	if withArgs {
		if args, err = s.repo.ListArguments(ctx, f.ID, 0); err != nil {
			return nil, internal("list arguments", err)
		}
	}
	for _, r := range rounds {
		rv := RoundView{Round: r}
		for _, side := range []string{f.AgentAID, f.AgentBID} {
			for _, a := range args {
				if a.RoundNumber == r.Number && a.AgentID == side {
					rv.Arguments = append(rv.Arguments, a)
				}
			}
		}
		v.Rounds = append(v.Rounds, rv)
	}
	return v, nil
}

func (s *Service) summary(ctx context.Context, id string, cache map[string]*AgentSummary) (*AgentSummary, error) {
	if sum, ok := cache[id]; ok {
		return sum, nil
	}
	a, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := &AgentSummary{ID: a.ID, Name: a.Name, Wins: a.Wins, Losses: a.Losses, Reputation: a.Reputation}
	cache[id] = sum
	return sum, nil
}
