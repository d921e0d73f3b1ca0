package arena

import "context"

// Oracle scores one round. Implementations must be side-effect free and
// return errors of kind KindOracleUnavailable or KindOracleFormat.
type Oracle interface {
	Score(ctx context.Context, req *ScoreRequest) (*Verdict, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, req *ScoreRequest) (*Verdict, error)

func (f OracleFunc) Score(ctx context.Context, req *ScoreRequest) (*Verdict, error) {
	return f(ctx, req)
}

// ScoreRequest carries everything the oracle needs to judge a round.
// ArgumentA is always the challenger's text regardless of submission order.
type ScoreRequest struct {
	FightID     string
	Topic       string
	RoundNumber int
	AgentAName  string
	AgentBName  string
	Prior       []PriorRound
	ArgumentA   string
	ArgumentB   string
}

// PriorRound summarises an already judged round for trend context.
type PriorRound struct {
	Number    int
	ScoreA    float64
	ScoreB    float64
	ArgumentA string
	ArgumentB string
}
